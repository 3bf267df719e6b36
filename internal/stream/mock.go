package stream

// MockAnalysis returns the canned analysis body streamed when the generation
// provider is unavailable. Whole lines become individual chunks.
func MockAnalysis(mode string) string {
	switch mode {
	case "chat":
		return `I reviewed the available case material and can walk you through it.
The indexed documents cover the principal contractual obligations between the parties.
Key areas include indemnification scope, termination rights and limitation of liability.
The analysis service is currently running in offline mode against indexed passages only.
Ask about a specific clause or topic and I will point you to the relevant passages.
For binding interpretation, consult the full executed agreement and qualified counsel.`
	case "summarize":
		return `Document Summary
The agreement establishes mutual obligations between the contracting parties.
Indemnification provisions allocate third-party claim risk between the parties.
Termination rights arise on material breach after written notice and a cure period.
Liability is capped at fees paid in the preceding twelve months, with customary carve-outs.
Confidentiality obligations survive termination of the agreement.
This summary was produced in offline mode from the indexed passages.`
	default:
		return `Legal Analysis
Based on the indexed documents, the following observations apply.
1. Indemnification: the indemnifying party bears defense costs for covered third-party claims.
2. Termination: either party may terminate for uncured material breach on written notice.
3. Liability: aggregate liability is limited, subject to negotiated carve-outs.
4. Confidentiality: obligations extend beyond the term of the agreement.
Risk assessment: the allocation of obligations appears within market norms.
Recommended next step: review the cited clauses against the counterparty's latest draft.
This analysis was produced in offline mode and is not legal advice.`
	}
}
