package ports

const (
	DefaultUsersPageSize    = 50  // Default page size for the admin user listing
	DefaultDepositsPageSize = 20  // Default page size for the deposit history listing
	MaxPageSize             = 100 // Upper bound on any page size
	MaxSearchLength         = 100 // Upper bound on the user search term
	MaxNotesLength          = 500 // Upper bound on admin notes and cancellation reasons
	RecentDepositsLimit     = 10  // Number of recent deposits shown on the user detail view
)
