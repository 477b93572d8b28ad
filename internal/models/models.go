package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Custom types to enforce specific values
type UserRole string
type NonConformanceStatus string
type AuditType string
type AuditStatus string
type FindingSeverity string
type FindingStatus string
type RiskItemStatus string
type AssessmentSubject string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleAuditor UserRole = "auditor"
	RoleUser    UserRole = "user"

	NCStatusOpen          NonConformanceStatus = "open"
	NCStatusInvestigating NonConformanceStatus = "investigating"
	NCStatusCorrective    NonConformanceStatus = "corrective_action"
	NCStatusClosed        NonConformanceStatus = "closed"

	AuditTypeInternal      AuditType = "internal"
	AuditTypeExternal      AuditType = "external"
	AuditTypeSupplier      AuditType = "supplier"
	AuditTypeCertification AuditType = "certification"
	AuditTypeRegulatory    AuditType = "regulatory"

	AuditStatusPlanned    AuditStatus = "planned"
	AuditStatusInProgress AuditStatus = "in_progress"
	AuditStatusCompleted  AuditStatus = "completed"
	AuditStatusClosed     AuditStatus = "closed"

	FindingSeverityObservation FindingSeverity = "observation"
	FindingSeverityMinor       FindingSeverity = "minor"
	FindingSeverityMajor       FindingSeverity = "major"
	FindingSeverityCritical    FindingSeverity = "critical"

	FindingStatusOpen       FindingStatus = "open"
	FindingStatusInProgress FindingStatus = "in_progress"
	FindingStatusClosed     FindingStatus = "closed"
	FindingStatusVerified   FindingStatus = "verified"

	RiskItemStatusIdentified RiskItemStatus = "identified"
	RiskItemStatusMitigating RiskItemStatus = "mitigating"
	RiskItemStatusMonitored  RiskItemStatus = "monitored"
	RiskItemStatusClosed     RiskItemStatus = "closed"

	SubjectAudit   AssessmentSubject = "audit"
	SubjectFinding AssessmentSubject = "finding"
)

type Organization struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key;"`
	Name                  string    `gorm:"size:255;not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Users                 []User                 `gorm:"foreignKey:OrganizationID"`
	WebhookConfigurations []WebhookConfiguration `gorm:"foreignKey:OrganizationID"`
}

func (org *Organization) BeforeCreate(tx *gorm.DB) (err error) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	return
}

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null"`
	Name           string    `gorm:"size:255;not null"`
	Email          string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	Role           UserRole  `gorm:"type:varchar(20);not null;default:'user'"`
	IsActive       bool      `gorm:"default:true;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

// RiskItem is an entry of the risk register. Likelihood and severity are 1-5;
// RiskScore is their product. RiskAcceptable is set by a person, never computed.
type RiskItem struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Category          string         `gorm:"size:50;not null" json:"category"`
	BusinessUnit      string         `gorm:"size:100" json:"business_unit"`
	ProjectID         *uuid.UUID     `gorm:"type:uuid" json:"project_id,omitempty"`
	Likelihood        int            `gorm:"not null" json:"likelihood"`
	Severity          int            `gorm:"not null" json:"severity"`
	RiskScore         int            `gorm:"not null" json:"risk_score"`
	Status            RiskItemStatus `gorm:"type:varchar(20);default:'identified'" json:"status"`
	RiskAcceptable    bool           `gorm:"default:false;not null" json:"risk_acceptable"`
	CascadeEffect     bool           `gorm:"default:false;not null" json:"cascade_effect"`
	AmplificationRisk bool           `gorm:"default:false;not null" json:"amplification_risk"`
	OwnerID           *uuid.UUID     `gorm:"type:uuid" json:"owner_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (r *RiskItem) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// RiskCorrelation links two register items. Strength is 1-5.
type RiskCorrelation struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID  uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	PrimaryRiskID   uuid.UUID `gorm:"type:uuid;not null;index" json:"primary_risk_id"`
	RelatedRiskID   uuid.UUID `gorm:"type:uuid;not null;index" json:"related_risk_id"`
	CorrelationType string    `gorm:"type:varchar(20);not null" json:"correlation_type"`
	Strength        int       `gorm:"not null" json:"strength"`
	CreatedAt       time.Time `json:"created_at"`
}

func (rc *RiskCorrelation) BeforeCreate(tx *gorm.DB) (err error) {
	if rc.ID == uuid.Nil {
		rc.ID = uuid.New()
	}
	return
}

type NonConformance struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;index" json:"organization_id"`
	Title          string               `gorm:"size:255;not null" json:"title"`
	Description    string               `gorm:"type:text" json:"description"`
	Source         string               `gorm:"size:50" json:"source"`
	Severity       string               `gorm:"type:varchar(20);not null" json:"severity"`
	Status         NonConformanceStatus `gorm:"type:varchar(30);default:'open'" json:"status"`
	ReportedAt     time.Time            `gorm:"not null" json:"reported_at"`
	ReportedByID   *uuid.UUID           `gorm:"type:uuid" json:"reported_by_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (nc *NonConformance) BeforeCreate(tx *gorm.DB) (err error) {
	if nc.ID == uuid.Nil {
		nc.ID = uuid.New()
	}
	return
}

// NCRiskAssessment stores one weighted-category assessment of a non-conformance.
// Acceptability on this scale is a policy decision recorded by the assessor.
type NCRiskAssessment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	NonConformanceID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"non_conformance_id"`
	FoodSafetyImpact   string     `gorm:"type:varchar(20);not null" json:"food_safety_impact"`
	RegulatoryImpact   string     `gorm:"type:varchar(20);not null" json:"regulatory_impact"`
	CustomerImpact     string     `gorm:"type:varchar(20);not null" json:"customer_impact"`
	BusinessImpact     string     `gorm:"type:varchar(20);not null" json:"business_impact"`
	OverallRiskScore   float64    `gorm:"type:numeric(4,2);not null" json:"overall_risk_score"`
	RiskLevel          string     `gorm:"type:varchar(20);not null" json:"risk_level"`
	RiskMatrixPosition string     `gorm:"size:4" json:"risk_matrix_position"`
	RequiresEscalation bool       `gorm:"not null" json:"requires_escalation"`
	EscalationLevel    *string    `gorm:"type:varchar(20)" json:"escalation_level,omitempty"`
	RiskAcceptable     bool       `gorm:"default:false;not null" json:"risk_acceptable"`
	AssessedByID       *uuid.UUID `gorm:"type:uuid" json:"assessed_by_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (NCRiskAssessment) TableName() string { return "nc_risk_assessments" }

func (a *NCRiskAssessment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// EscalationRule is configured per organization. Recipients is a comma separated
// list of e-mail addresses or role names.
type EscalationRule struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID      uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name                string    `gorm:"size:100;not null" json:"name"`
	TriggerCondition    string    `gorm:"type:varchar(20);not null" json:"trigger_condition"`
	TriggerValue        float64   `gorm:"not null" json:"trigger_value"`
	EscalationLevel     string    `gorm:"type:varchar(20);not null" json:"escalation_level"`
	EscalationTimeframe int       `gorm:"not null;default:24" json:"escalation_timeframe"`
	Recipients          string    `gorm:"type:text" json:"recipients"`
	IsActive            bool      `gorm:"not null" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (r *EscalationRule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// EscalationEvent records a rule that fired, for the escalation dashboard.
type EscalationEvent struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	RuleID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"rule_id"`
	NonConformanceID *uuid.UUID `gorm:"type:uuid" json:"non_conformance_id,omitempty"`
	TriggerValue     float64    `gorm:"not null" json:"trigger_value"`
	EscalationLevel  string     `gorm:"type:varchar(20);not null" json:"escalation_level"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (e *EscalationEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

type Audit struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	AuditType        AuditType      `gorm:"type:varchar(20);not null" json:"audit_type"`
	Status           AuditStatus    `gorm:"type:varchar(20);default:'planned'" json:"status"`
	Scope            string         `gorm:"type:text" json:"scope"`
	ComplianceImpact int            `gorm:"not null;default:3" json:"compliance_impact"`
	PlannedDate      *time.Time     `json:"planned_date,omitempty"`
	LeadAuditorID    *uuid.UUID     `gorm:"type:uuid" json:"lead_auditor_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Findings         []AuditFinding `gorm:"foreignKey:AuditID" json:"findings,omitempty"`
}

func (a *Audit) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

type AuditFinding struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	AuditID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"audit_id"`
	Description       string          `gorm:"type:text;not null" json:"description"`
	Clause            string          `gorm:"size:50" json:"clause"`
	Severity          FindingSeverity `gorm:"type:varchar(20);not null" json:"severity"`
	Status            FindingStatus   `gorm:"type:varchar(20);default:'open'" json:"status"`
	ComplianceImpact  int             `gorm:"not null;default:3" json:"compliance_impact"`
	OperationalImpact int             `gorm:"not null;default:3" json:"operational_impact"`
	// EvidenceObject guarda o nome do objeto no storage, não uma URL pública.
	EvidenceObject string    `gorm:"size:1024" json:"evidence_object,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (f *AuditFinding) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}

// AuditRiskAssessment stores the 0-100 assessment of an audit or a finding.
// Exactly one of AuditID / FindingID is the subject, per SubjectType.
type AuditRiskAssessment struct {
	ID                   uuid.UUID         `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"organization_id"`
	SubjectType          AssessmentSubject `gorm:"type:varchar(10);not null" json:"subject_type"`
	AuditID              uuid.UUID         `gorm:"type:uuid;not null;index" json:"audit_id"`
	FindingID            *uuid.UUID        `gorm:"type:uuid;index" json:"finding_id,omitempty"`
	InitialRiskScore     int               `gorm:"not null" json:"initial_risk_score"`
	InitialRiskLevel     string            `gorm:"type:varchar(20);not null" json:"initial_risk_level"`
	ControlEffectiveness int               `gorm:"not null" json:"control_effectiveness"`
	ResidualRiskScore    float64           `gorm:"not null" json:"residual_risk_score"`
	ResidualRiskLevel    string            `gorm:"type:varchar(20);not null" json:"residual_risk_level"`
	RiskAcceptable       bool              `gorm:"not null" json:"risk_acceptable"`
	CreatedAt            time.Time         `json:"created_at"`
}

func (a *AuditRiskAssessment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// WebhookEventType define os tipos de eventos que podem disparar webhooks.
type WebhookEventType string

const (
	EventTypeEscalationTriggered WebhookEventType = "escalation_triggered"
	EventTypeRiskAssessed        WebhookEventType = "risk_assessed"
)

// WebhookConfiguration armazena a configuração para um webhook específico.
type WebhookConfiguration struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	URL            string    `gorm:"size:2048;not null" json:"url"`
	// EventTypes é a lista separada por vírgula, ex. "escalation_triggered,risk_assessed".
	EventTypes string    `gorm:"type:text" json:"-"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate hook para WebhookConfiguration
func (wc *WebhookConfiguration) BeforeCreate(tx *gorm.DB) (err error) {
	if wc.ID == uuid.Nil {
		wc.ID = uuid.New()
	}
	return
}

// EventTypeList devolve os eventos assinados pelo webhook.
func (wc WebhookConfiguration) EventTypeList() []string {
	if wc.EventTypes == "" {
		return []string{}
	}
	var out []string
	for _, e := range strings.Split(wc.EventTypes, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Subscribes indica se o webhook está ativo e assinado ao evento.
func (wc WebhookConfiguration) Subscribes(event WebhookEventType) bool {
	if !wc.IsActive {
		return false
	}
	for _, e := range wc.EventTypeList() {
		if e == string(event) {
			return true
		}
	}
	return false
}
