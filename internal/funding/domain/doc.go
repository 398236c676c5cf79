// Package domain implements the milestone-gated crowdfunding core: the
// campaign aggregate, its contribution ledger, and the state machine that
// governs tranche release, voting, cancellation, and refunds.
//
// The campaign aggregate exclusively owns its milestones and contribution
// ledger. Two conservation invariants hold across every operation sequence:
// the raised amount equals the sum of recorded contributions, and the sum of
// milestone amounts equals the campaign target.
//
// Pure transition functions (ApplyContribution, CompleteMilestone, ApplyVote,
// ApplyCancel, ApplyRefund) compute the next aggregate state without side
// effects. Service wires them to the persistence boundary and the external
// transfer port, serializing mutations per campaign so each operation appears
// atomic to concurrent observers. The transfer in release and refund settles
// before any state commits: a failed transfer changes nothing.
package domain
