package model

// FileAsset references one object-store blob. Bytes live in the object store;
// the movement owns only the key (temporary before finalization, final after).
type FileAsset struct {
	Key          ObjectKey `json:"key"`
	URL          string    `json:"url,omitempty"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	OriginalName string    `json:"originalName,omitempty"`
}

// Bound is the trip direction.
type Bound string

const (
	BoundSouth Bound = "SOUTH_BOUND"
	BoundNorth Bound = "NORTH_BOUND"
	BoundLocal Bound = "LOCAL"
)

// Bounds lists every valid Bound.
var Bounds = []Bound{BoundSouth, BoundNorth, BoundLocal}

// AngleKey identifies one of the eight fixed trailer photo angles.
type AngleKey string

// AngleKeys is the fixed photo-angle vocabulary, in canonical traversal order.
var AngleKeys = []AngleKey{
	"FRONT", "REAR",
	"LEFT_FRONT", "LEFT_CENTER", "LEFT_REAR",
	"RIGHT_FRONT", "RIGHT_CENTER", "RIGHT_REAR",
}

// AxleType distinguishes single from dual tire mounting.
type AxleType string

const (
	AxleSingle AxleType = "SINGLE"
	AxleDual   AxleType = "DUAL"
)

// TireCondition is ORI (original) or RE (recap).
type TireCondition string

const (
	TireOriginal TireCondition = "ORI"
	TireRecap    TireCondition = "RE"
)

// Axle count and number limits.
const (
	MinAxles   = 2
	MaxAxles   = 6
	MaxTirePSI = 200
)

// DamageChecklistKeys is the fixed-key damage walkaround checklist.
var DamageChecklistKeys = []string{
	"ROOF", "FLOOR", "FRONT_WALL", "LEFT_WALL", "RIGHT_WALL",
	"REAR_DOORS", "LANDING_GEAR", "MUD_FLAPS", "LIGHTS", "FRAME",
}

// ComplianceChecklistKeys is the fixed-key compliance checklist.
var ComplianceChecklistKeys = []string{
	"REGISTRATION", "INSURANCE", "ANNUAL_INSPECTION", "LICENSE_PLATE",
	"REFLECTORS", "BRAKE_LINES", "SEALS_INTACT", "ABS_LIGHT",
}

// DamageLocation places a damage item on the trailer.
type DamageLocation string

// DamageLocations lists every valid DamageLocation.
var DamageLocations = []DamageLocation{
	"FRONT", "REAR", "LEFT_SIDE", "RIGHT_SIDE",
	"ROOF", "FLOOR", "INTERIOR", "UNDERCARRIAGE",
}

// DamageType classifies a damage item.
type DamageType string

// DamageTypes lists every valid DamageType.
var DamageTypes = []DamageType{
	"DENT", "SCRATCH", "HOLE", "CRACK", "RUST", "TEAR", "BROKEN_PART", "OTHER",
}

// CarrierInfo is the validated carrier section.
type CarrierInfo struct {
	CarrierName string `json:"carrierName"`
	DriverName  string `json:"driverName"`
	TruckNumber string `json:"truckNumber,omitempty"`
}

// TripInfo is the validated trip section.
type TripInfo struct {
	InspectionExpiry string `json:"inspectionExpiry"` // YYYY-MM-DD
	Customer         string `json:"customer"`
	Destination      string `json:"destination"`
	OrderNumber      string `json:"orderNumber"`
	Loaded           bool   `json:"loaded"`
	Bound            Bound  `json:"bound"`
}

// Document is one supporting document photo.
type Document struct {
	Description string    `json:"description"`
	Photo       FileAsset `json:"photo"`
}

// TireSpec describes the outer or inner tire on one side of an axle.
type TireSpec struct {
	Brand     string        `json:"brand"` // canonical brand name
	PSI       float64       `json:"psi"`
	Condition TireCondition `json:"condition"`
}

// AxleSide is the left or right half of an axle: a photo plus outer tire,
// and an inner tire when the axle is DUAL.
type AxleSide struct {
	Photo FileAsset `json:"photo"`
	Outer TireSpec  `json:"outer"`
	Inner *TireSpec `json:"inner,omitempty"`
}

// Axle is one validated axle with both sides.
type Axle struct {
	Number int      `json:"number"` // 1..6, unique per submission
	Type   AxleType `json:"type"`
	Left   AxleSide `json:"left"`
	Right  AxleSide `json:"right"`
}

// Damage is one reported damage item.
type Damage struct {
	Location  DamageLocation `json:"location"`
	Type      DamageType     `json:"type"`
	Photo     FileAsset      `json:"photo"`
	NewDamage bool           `json:"newDamage"`
	Comment   string         `json:"comment,omitempty"`
}

// MovementPayload is the validated five-section payload embedded in a
// Movement. All file asset keys are temporary until the finalizer rewrites
// them.
type MovementPayload struct {
	Carrier             CarrierInfo             `json:"carrier"`
	Trip                TripInfo                `json:"trip"`
	Documents           []Document              `json:"documents"`
	Angles              map[AngleKey]FileAsset  `json:"angles"`
	Axles               []Axle                  `json:"axles"`
	DamageChecklist     map[string]bool         `json:"damageChecklist"`
	Damages             []Damage                `json:"damages,omitempty"`
	ComplianceChecklist map[string]bool         `json:"complianceChecklist"`
}

// HasNewDamage reports whether any damage item is flagged as new.
func (p *MovementPayload) HasNewDamage() bool {
	for _, d := range p.Damages {
		if d.NewDamage {
			return true
		}
	}
	return false
}

// TrailerInput is an inline trailer definition supplied when the trailer is
// not yet registered.
type TrailerInput struct {
	Number           *string `json:"number"`
	Owner            *string `json:"owner"`
	Make             *string `json:"make"`
	Model            *string `json:"model"`
	Year             *int    `json:"year"`
	VIN              *string `json:"vin"`
	Plate            *string `json:"plate"`
	Jurisdiction     *string `json:"jurisdiction"`
	Type             *string `json:"type"`
	InspectionExpiry *string `json:"inspectionExpiry"` // YYYY-MM-DD
}

// Raw submission sections: pointer-heavy shapes decoded straight from the
// request body so the validator can distinguish "absent" from "zero".

// CarrierSection is the raw carrier section.
type CarrierSection struct {
	CarrierName *string `json:"carrierName"`
	DriverName  *string `json:"driverName"`
	TruckNumber *string `json:"truckNumber"`
}

// TripSection is the raw trip section.
type TripSection struct {
	InspectionExpiry *string `json:"inspectionExpiry"`
	Customer         *string `json:"customer"`
	Destination      *string `json:"destination"`
	OrderNumber      *string `json:"orderNumber"`
	Loaded           *bool   `json:"loaded"`
	Bound            *string `json:"bound"`
}

// DocumentInput is one raw document entry.
type DocumentInput struct {
	Description *string    `json:"description"`
	Photo       *FileAsset `json:"photo"`
}

// TireSpecInput is one raw tire spec.
type TireSpecInput struct {
	Brand     *string  `json:"brand"`
	PSI       *float64 `json:"psi"`
	Condition *string  `json:"condition"`
}

// AxleSideInput is one raw axle side.
type AxleSideInput struct {
	Photo *FileAsset     `json:"photo"`
	Outer *TireSpecInput `json:"outer"`
	Inner *TireSpecInput `json:"inner"`
}

// AxleInput is one raw axle entry.
type AxleInput struct {
	Number *int           `json:"number"`
	Type   *string        `json:"type"`
	Left   *AxleSideInput `json:"left"`
	Right  *AxleSideInput `json:"right"`
}

// DamageInput is one raw damage entry.
type DamageInput struct {
	Location  *string    `json:"location"`
	Type      *string    `json:"type"`
	Photo     *FileAsset `json:"photo"`
	NewDamage *bool      `json:"newDamage"`
	Comment   *string    `json:"comment"`
}

// SubmissionRequest is the raw JSON body of POST /api/v1/movements. The
// validator turns it into a MovementPayload or rejects it wholesale.
type SubmissionRequest struct {
	Type      MovementType  `json:"type"`
	RequestID string        `json:"requestId"`
	YardID    string        `json:"yardId,omitempty"`
	TrailerID string        `json:"trailerId,omitempty"`
	Trailer   *TrailerInput `json:"trailer,omitempty"`

	Carrier             *CarrierSection       `json:"carrier"`
	Trip                *TripSection          `json:"trip"`
	Documents           []DocumentInput       `json:"documents"`
	Angles              map[string]*FileAsset `json:"angles"`
	Axles               []AxleInput           `json:"axles"`
	DamageChecklist     map[string]*bool      `json:"damageChecklist"`
	Damages             []DamageInput         `json:"damages"`
	ComplianceChecklist map[string]*bool      `json:"complianceChecklist"`
}
