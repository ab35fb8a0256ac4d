package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	TenantIDKey ContextKey = "tenant_id"
	ScopeKey    ContextKey = "scope"
)

// Role is the coarse permission level carried in the token.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleDoctor     Role = "doctor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleStaff, RoleDoctor:
		return true
	}
	return false
}

// Scope identifies who is acting and for which tenant. Controllers build it once from
// the verified token and hand it to services explicitly.
type Scope struct {
	TenantID primitive.ObjectID `json:"tenant_id"`
	UserID   primitive.ObjectID `json:"user_id"`
	Role     Role               `json:"role"`
	DoctorID primitive.ObjectID `json:"doctor_id,omitempty"`
}

func (s Scope) IsSuperAdmin() bool {
	return s.Role == RoleSuperAdmin
}

// IsAdmin is true for tenant admins and super admins.
func (s Scope) IsAdmin() bool {
	return s.Role == RoleAdmin || s.Role == RoleSuperAdmin
}

// Filter returns the tenant restriction for a query. Super admins see every tenant.
func (s Scope) Filter() bson.M {
	if s.IsSuperAdmin() {
		return bson.M{}
	}
	return bson.M{"tenant_id": s.TenantID}
}

// With merges extra conditions into the tenant filter.
func (s Scope) With(extra bson.M) bson.M {
	f := s.Filter()
	for k, v := range extra {
		f[k] = v
	}
	return f
}

// SystemScope is used by background jobs acting on behalf of a tenant.
func SystemScope(tenantID primitive.ObjectID) Scope {
	return Scope{TenantID: tenantID, Role: RoleAdmin}
}

type AuditAction string

const (
	AuditActionCreate   AuditAction = "CREATE"
	AuditActionUpdate   AuditAction = "UPDATE"
	AuditActionDelete   AuditAction = "DELETE"
	AuditActionLogin    AuditAction = "LOGIN"
	AuditActionImport   AuditAction = "IMPORT"
	AuditActionStatus   AuditAction = "STATUS"
	AuditActionStock    AuditAction = "STOCK"
	AuditActionMessage  AuditAction = "MESSAGE"
	AuditActionSync     AuditAction = "SYNC"
	AuditActionConvert  AuditAction = "CONVERT"
	AuditActionSettings AuditAction = "SETTINGS"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID  primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	ActorName string             `bson:"-" json:"actor_name,omitempty"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	Level        string    `bson:"level" json:"level"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	IpAddress    string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	TenantID     string    `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	RequestID    string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	AppId        string    `bson:"app_id" json:"app_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}

// Page is a 1-based page request.
type Page struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}

// NewPage clamps page and limit to sane values.
func NewPage(page, limit int64) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int64 {
	return (p.Page - 1) * p.Limit
}

type PageResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}
