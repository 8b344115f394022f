package repositories

// RepositoryContainer holds every repository facade the services depend on.
type RepositoryContainer struct {
	Entry   EntryRepositoryFacade
	Account AccountRepositoryFacade
	Audit   AuditRepositoryFacade
	Company CompanyRepositoryFacade
}
