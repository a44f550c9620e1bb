package auth

type Permission string

const (
	PermDocumentUpload     Permission = "document.upload"
	PermDocumentReview     Permission = "document.review"
	PermDocumentPay        Permission = "document.pay"
	PermDocumentConciliate Permission = "document.conciliate"
	PermDocumentReadAny    Permission = "document.read_any"
	PermDocumentAttach     Permission = "document.attach"
	PermUsersManage        Permission = "users.manage"
	PermAuditRead          Permission = "audit.read"
	PermSettingsUpdate     Permission = "settings.update"
)

// permissions is the only place role capabilities are declared; services and
// route guards both consult it through Role.Can.
var permissions = map[Permission]map[Role]bool{
	PermDocumentUpload:     {RoleAdmin: true, RoleFinanceiro: true, RoleViewer: true},
	PermDocumentReview:     {RoleAdmin: true, RoleFinanceiro: true},
	PermDocumentPay:        {RoleAdmin: true, RoleGestor: true},
	PermDocumentConciliate: {RoleAdmin: true, RoleGestor: true},
	PermDocumentReadAny:    {RoleAdmin: true, RoleGestor: true, RoleFinanceiro: true, RoleContabilidade: true},
	PermDocumentAttach:     {RoleAdmin: true, RoleGestor: true, RoleFinanceiro: true, RoleContabilidade: true, RoleViewer: true},
	PermUsersManage:        {RoleAdmin: true},
	PermAuditRead:          {RoleAdmin: true},
	PermSettingsUpdate:     {RoleAdmin: true},
}

func (r Role) Can(p Permission) bool {
	return permissions[p][r]
}
