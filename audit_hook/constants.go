package audithook

// Action constants for audit events.
const (
	// Sale actions
	ActionTokensMinted = "tokens.minted"
	ActionMintRejected = "mint.rejected"
	ActionRefundIssued = "refund.issued"
	ActionSaleFinished = "sale.finished"

	// Treasury actions
	ActionBalanceWithdrawn = "balance.withdrawn"
	ActionDepositReceived  = "deposit.received"

	// Administration actions
	ActionRoyaltyDefaultSet    = "royalty.default_set"
	ActionRoyaltyTokenSet      = "royalty.token_set"
	ActionOwnershipTransferred = "ownership.transferred"
)

// Resource constants for audit events.
const (
	ResourceSale    = "sale"
	ResourceToken   = "token"
	ResourceRefund  = "refund"
	ResourceBalance = "balance"
	ResourceRoyalty = "royalty"
	ResourceOwner   = "owner"
)

// Category constants for audit events.
const (
	CategorySale     = "sale"
	CategoryTreasury = "treasury"
	CategoryAdmin    = "admin"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
