// Package catalog holds the immutable claim-processing step template and the
// pure rules that compute auto-synced step statuses from related entities.
package catalog

// Step keys, in workflow order. The catalog is configuration, not persisted
// state: persisted steps always mirror it.
const (
	KeyAlertTriggered       = "alert_triggered"
	KeyOpsCenterNotified    = "ops_center_notified"
	KeyPhysicianNotified    = "physician_notified"
	KeyPatientLocated       = "patient_located"
	KeyHospitalActivated    = "hospital_activated"
	KeyAmbulanceDispatched  = "ambulance_dispatched"
	KeyPhysicianEnRoute     = "physician_en_route"
	KeyMedicalDataShared    = "medical_data_shared"
	KeyUrgencyVerified      = "urgency_verified"
	KeyCoverageSuspended    = "coverage_suspended"
	KeyClaimNumberAssigned  = "claim_number_assigned"
	KeyInvoiceIssued        = "invoice_issued"
	KeyInvoiceMedicalValid  = "invoice_medical_validated"
	KeyInvoiceSinistreValid = "invoice_sinistre_validated"
	KeyInvoiceComptaValid   = "invoice_compta_validated"
)

// StepDefinition is one entry of the step catalog
type StepDefinition struct {
	Key         string
	Order       int
	Title       string
	Description string

	// AutoSync steps have their status recomputed from related-entity state
	// every time the claim is touched; the others are set only by an
	// explicit actor action.
	AutoSync bool
}

var steps = []StepDefinition{
	{Key: KeyAlertTriggered, Order: 1, Title: "Alert triggered", Description: "Emergency alert received from the insured", AutoSync: true},
	{Key: KeyOpsCenterNotified, Order: 2, Title: "Operations center notified", Description: "Alert routed to the operations center", AutoSync: true},
	{Key: KeyPhysicianNotified, Order: 3, Title: "Regulating physician notified", Description: "On-call physician informed of the case", AutoSync: false},
	{Key: KeyPatientLocated, Order: 4, Title: "Patient located", Description: "Patient position confirmed on the ground", AutoSync: false},
	{Key: KeyHospitalActivated, Order: 5, Title: "Hospital activated", Description: "Receiving hospital assigned to the claim", AutoSync: true},
	{Key: KeyAmbulanceDispatched, Order: 6, Title: "Ambulance dispatched", Description: "Transport dispatched to the patient", AutoSync: false},
	{Key: KeyPhysicianEnRoute, Order: 7, Title: "Physician en route", Description: "Physician travelling to the patient", AutoSync: false},
	{Key: KeyMedicalDataShared, Order: 8, Title: "Medical data shared", Description: "Medical file shared with the receiving hospital", AutoSync: false},
	{Key: KeyUrgencyVerified, Order: 9, Title: "Urgency verified", Description: "Medical urgency of the case confirmed", AutoSync: true},
	{Key: KeyCoverageSuspended, Order: 10, Title: "Coverage suspended", Description: "Claim suspended after urgency was found unjustified", AutoSync: false},
	{Key: KeyClaimNumberAssigned, Order: 11, Title: "Claim number assigned", Description: "Definitive claim number issued", AutoSync: true},
	{Key: KeyInvoiceIssued, Order: 12, Title: "Invoice issued", Description: "Hospital invoice issued for the stay", AutoSync: true},
	{Key: KeyInvoiceMedicalValid, Order: 13, Title: "Invoice medical validation", Description: "Invoice reviewed by the medical pole", AutoSync: true},
	{Key: KeyInvoiceSinistreValid, Order: 14, Title: "Invoice claims validation", Description: "Invoice reviewed by the claims pole", AutoSync: true},
	{Key: KeyInvoiceComptaValid, Order: 15, Title: "Invoice accounting validation", Description: "Invoice reviewed by the accounting pole", AutoSync: true},
}

var stepsByKey = func() map[string]StepDefinition {
	m := make(map[string]StepDefinition, len(steps))
	for _, s := range steps {
		m[s.Key] = s
	}
	return m
}()

// Steps returns the catalog entries in workflow order. The returned slice is
// a copy; callers cannot mutate the catalog.
func Steps() []StepDefinition {
	out := make([]StepDefinition, len(steps))
	copy(out, steps)
	return out
}

// ByKey returns the catalog entry for the given key
func ByKey(key string) (StepDefinition, bool) {
	def, ok := stepsByKey[key]
	return def, ok
}

// Len returns the number of catalog entries
func Len() int {
	return len(steps)
}
