package gate

// Action describes the kind of operation a caller wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage covers staff-only operations such as status changes.
	ActionManage Action = "manage"
)
