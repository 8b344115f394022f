package services

// ServiceContainer aggregates the service facades handed to the command
// surface and handlers.
type ServiceContainer struct {
	Entry      EntrySvcFacade
	AutoEntry  AutoEntrySvcFacade
	Account    AccountSvcFacade
	Company    CompanySvcFacade
	Authorizer Authorizer
}
