package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Campaign lookup errors
	CodeCampaignNotFound  Code = "CAMPAIGN_NOT_FOUND"
	CodeInvalidMilestone  Code = "CAMPAIGN_INVALID_MILESTONE"
	CodeCampaignNotActive Code = "CAMPAIGN_NOT_ACTIVE"

	// Campaign creation errors (the invalid-parameters family)
	CodeCampaignTitleEmpty          Code = "CAMPAIGN_TITLE_EMPTY"
	CodeCampaignCreatorEmpty        Code = "CAMPAIGN_CREATOR_EMPTY"
	CodeCampaignInvalidTarget       Code = "CAMPAIGN_INVALID_TARGET"
	CodeCampaignDeadlineNotFuture   Code = "CAMPAIGN_DEADLINE_NOT_FUTURE"
	CodeCampaignNoMilestones        Code = "CAMPAIGN_NO_MILESTONES"
	CodeMilestoneInvalidAmount      Code = "MILESTONE_INVALID_AMOUNT"
	CodeMilestoneDeadlineOutOfRange Code = "MILESTONE_DEADLINE_OUT_OF_RANGE"
	CodeMilestoneAmountSumMismatch  Code = "MILESTONE_AMOUNT_SUM_MISMATCH"

	// Contribution errors
	CodeContributionZeroAmount    Code = "CONTRIBUTION_ZERO_AMOUNT"
	CodeContributionPastDeadline  Code = "CONTRIBUTION_PAST_DEADLINE"
	CodeContributionExceedsTarget Code = "CONTRIBUTION_EXCEEDS_TARGET"

	// Release errors
	CodeUnauthorized             Code = "UNAUTHORIZED"
	CodeCampaignNotFullyFunded   Code = "CAMPAIGN_NOT_FULLY_FUNDED"
	CodeMilestoneNotPending      Code = "MILESTONE_NOT_PENDING"
	CodeMilestoneDeadlinePassed  Code = "MILESTONE_DEADLINE_PASSED"
	CodePriorMilestoneIncomplete Code = "PRIOR_MILESTONE_INCOMPLETE"

	// Voting errors
	CodeMilestoneAlreadyVoted Code = "MILESTONE_ALREADY_VOTED"

	// Refund errors
	CodeNoContribution     Code = "NO_CONTRIBUTION"
	CodeRefundNotAvailable Code = "REFUND_NOT_AVAILABLE"

	// Settlement errors
	CodeTransferFailed Code = "TRANSFER_FAILED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)
