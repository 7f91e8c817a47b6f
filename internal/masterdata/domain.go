package masterdata

import (
	"time"

	"github.com/crestline-hq/crestline/internal/tax"
)

// Company is an onboarded client. The entity type identifies which legal
// entity bills the client; the client type locates the client for GST
// purposes and is forced to foreign when the entity is foreign-registered.
type Company struct {
	ID            int64
	Name          string
	EntityType    tax.EntityType
	ClientType    tax.ClientType
	ContactNumber string
	BuildingNo    string
	City          string
	State         string
	Country       string
	PinCode       string
	GSTIN         string
	SAC           string
	Email         string
	Active        bool
	CreatedAt     time.Time
}
