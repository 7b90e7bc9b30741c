package http

import (
	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/guard"
)

const resourceCountry = "country"

var (
	opCountryList   = guard.Op(resourceCountry, "list")
	opCountryGet    = guard.Op(resourceCountry, "get")
	opCountryCreate = guard.Op(resourceCountry, "create")
	opCountryUpdate = guard.Op(resourceCountry, "update")
	opCountryDelete = guard.Op(resourceCountry, "delete")
)

// Permissions declares who may call what. Reads fall back to the resource
// requirement; writes declare their own.
func Permissions() *guard.Registry {
	return guard.NewRegistry().
		Resource(resourceCountry, domain.Require(domain.OperatorOr, "show_country")).
		Method(opCountryCreate, domain.Require(domain.OperatorAnd, "manage_country")).
		Method(opCountryUpdate, domain.Require(domain.OperatorAnd, "manage_country")).
		Method(opCountryDelete, domain.Require(domain.OperatorAnd, "manage_country", "admin_country"))
}
