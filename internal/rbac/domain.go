package rbac

// Roles recognised by the application. Credentials and sessions are managed
// by the upstream gateway; only the role survives into this service.
const (
	RoleAdmin            = "admin"
	RoleAccountExecutive = "account_executive"
	RoleAccountManager   = "account_manager"
)

// Permissions guarding route groups.
const (
	PermInvoiceView     = "invoice.view"
	PermInvoiceGenerate = "invoice.generate"
	PermInvoicePayment  = "invoice.payment"
	PermMasterdataView  = "masterdata.view"
	PermMasterdataEdit  = "masterdata.edit"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermInvoiceView, PermInvoiceGenerate, PermInvoicePayment,
		PermMasterdataView, PermMasterdataEdit,
	},
	RoleAccountExecutive: {
		PermInvoiceView, PermInvoiceGenerate,
		PermMasterdataView, PermMasterdataEdit,
	},
	RoleAccountManager: {
		PermInvoiceView, PermInvoicePayment, PermMasterdataView,
	},
}

// PermissionsForRole returns the permission set granted to a role.
func PermissionsForRole(role string) map[string]struct{} {
	granted := make(map[string]struct{})
	for _, p := range rolePermissions[role] {
		granted[p] = struct{}{}
	}
	return granted
}
