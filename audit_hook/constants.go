package audithook

// Action constants for audit events.
const (
	// Administrative actions
	ActionInstantiated   = "ledger.instantiated"
	ActionReleaseStarted = "release.started"
	ActionReleasePaused  = "release.paused"
	ActionConfigUpdated  = "config.updated"
	ActionPricesUpdated  = "prices.updated"
	ActionCurveUpdated   = "curve.updated"

	// Entitlement actions
	ActionContributionAdded = "contribution.added"
	ActionGrantAdded        = "grant.added"
	ActionTokensClaimed     = "tokens.claimed"

	// Treasury actions
	ActionFundsWithdrawn = "funds.withdrawn"

	// Rejections
	ActionCommandRejected = "command.rejected"
)

// Resource constants for audit events.
const (
	ResourceConfig  = "config"
	ResourcePrices  = "price_table"
	ResourceCurve   = "vesting_curve"
	ResourceEntry   = "entry"
	ResourceFunds   = "funds"
	ResourceCommand = "command"
)

// Category constants for audit events.
const (
	CategoryAdmin       = "admin"
	CategoryEntitlement = "entitlement"
	CategoryTreasury    = "treasury"
	CategoryAccess      = "access"
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
