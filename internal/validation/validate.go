// Package validation structurally validates movement submissions. It is pure:
// no I/O, no clock, no store access. A submission either converts cleanly
// into a model.MovementPayload or fails with a ValidationError listing every
// offending path.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trailerops/yardgate/internal/model"
)

const dateLayout = "2006-01-02"

// Result is an accepted submission: the strongly-typed payload plus, when the
// caller supplied an inline trailer definition, the identity fields for a
// trailer to be created. TrailerID (if present on the request) takes
// precedence downstream; both may be present without conflict.
type Result struct {
	Payload    model.MovementPayload
	NewTrailer *model.Trailer // identity fields only, unsaved
}

// collector accumulates violations with dotted/indexed paths.
type collector struct {
	violations []model.Violation
}

func (c *collector) add(path, format string, args ...interface{}) {
	c.violations = append(c.violations, model.Violation{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *collector) err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return &model.ValidationError{Violations: c.violations}
}

// Validate checks every section of the raw submission and returns the typed
// payload, or a *model.ValidationError naming all offending paths.
func Validate(req *model.SubmissionRequest) (*Result, error) {
	c := &collector{}
	res := &Result{}

	if !model.ValidMovementType(req.Type) {
		c.add("type", "must be one of IN, OUT, INSPECTION")
	}
	if strings.TrimSpace(req.RequestID) == "" {
		c.add("requestId", "is required")
	}
	if (req.Type == model.MovementIn || req.Type == model.MovementOut) && req.YardID == "" {
		c.add("yardId", "is required for %s movements", req.Type)
	}

	res.Payload.Carrier = validateCarrier(c, req.Carrier)
	res.Payload.Trip = validateTrip(c, req.Trip)
	res.Payload.Documents = validateDocuments(c, req.Documents)
	res.Payload.Angles = validateAngles(c, req.Angles)
	res.Payload.Axles = validateAxles(c, req.Axles)
	res.Payload.DamageChecklist = validateChecklist(c, "damageChecklist", req.DamageChecklist, model.DamageChecklistKeys)
	res.Payload.Damages = validateDamages(c, req.Damages)
	res.Payload.ComplianceChecklist = validateChecklist(c, "complianceChecklist", req.ComplianceChecklist, model.ComplianceChecklistKeys)

	if req.TrailerID == "" && req.Trailer == nil {
		c.add("trailerId", "either trailerId or an inline trailer is required")
	}
	if req.Trailer != nil {
		res.NewTrailer = validateTrailerInput(c, req.Trailer)
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return res, nil
}

func requiredString(c *collector, path string, v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		c.add(path, "is required")
		return ""
	}
	return strings.TrimSpace(*v)
}

func requiredDate(c *collector, path string, v *string) string {
	s := requiredString(c, path, v)
	if s == "" {
		return ""
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		c.add(path, "must be a valid %s date", dateLayout)
		return ""
	}
	return s
}

func validateCarrier(c *collector, in *model.CarrierSection) model.CarrierInfo {
	if in == nil {
		c.add("carrier", "section is required")
		return model.CarrierInfo{}
	}
	out := model.CarrierInfo{
		CarrierName: requiredString(c, "carrier.carrierName", in.CarrierName),
		DriverName:  requiredString(c, "carrier.driverName", in.DriverName),
	}
	if in.TruckNumber != nil {
		out.TruckNumber = strings.TrimSpace(*in.TruckNumber)
	}
	return out
}

func validateTrip(c *collector, in *model.TripSection) model.TripInfo {
	if in == nil {
		c.add("trip", "section is required")
		return model.TripInfo{}
	}
	out := model.TripInfo{
		InspectionExpiry: requiredDate(c, "trip.inspectionExpiry", in.InspectionExpiry),
		Customer:         requiredString(c, "trip.customer", in.Customer),
		Destination:      requiredString(c, "trip.destination", in.Destination),
		OrderNumber:      requiredString(c, "trip.orderNumber", in.OrderNumber),
	}
	if in.Loaded == nil {
		c.add("trip.loaded", "is required")
	} else {
		out.Loaded = *in.Loaded
	}
	if in.Bound == nil {
		c.add("trip.bound", "is required")
	} else {
		b := model.Bound(*in.Bound)
		ok := false
		for _, known := range model.Bounds {
			if b == known {
				ok = true
				break
			}
		}
		if !ok {
			c.add("trip.bound", "must be one of SOUTH_BOUND, NORTH_BOUND, LOCAL")
		}
		out.Bound = b
	}
	return out
}

// validPhoto checks a file reference: non-empty key and an image mime type.
// allowPDF additionally admits application/pdf (scanned documents).
func validPhoto(c *collector, path string, a *model.FileAsset, allowPDF bool) model.FileAsset {
	if a == nil {
		c.add(path, "photo is required")
		return model.FileAsset{}
	}
	if a.Key.IsZero() {
		c.add(path+".key", "is required")
	}
	mt := strings.ToLower(a.MimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
	case allowPDF && mt == "application/pdf":
	default:
		c.add(path+".mimeType", "unsupported mime type %q", a.MimeType)
	}
	return *a
}

func validateDocuments(c *collector, in []model.DocumentInput) []model.Document {
	out := make([]model.Document, 0, len(in))
	for i, d := range in {
		path := fmt.Sprintf("documents[%d]", i)
		doc := model.Document{
			Description: requiredString(c, path+".description", d.Description),
			Photo:       validPhoto(c, path+".photo", d.Photo, true),
		}
		out = append(out, doc)
	}
	return out
}

func validateAngles(c *collector, in map[string]*model.FileAsset) map[model.AngleKey]model.FileAsset {
	out := make(map[model.AngleKey]model.FileAsset, len(model.AngleKeys))
	for _, key := range model.AngleKeys {
		a, ok := in[string(key)]
		if !ok || a == nil {
			c.add("angles."+string(key), "photo is required")
			continue
		}
		out[key] = validPhoto(c, "angles."+string(key), a, false)
	}
	for key := range in {
		known := false
		for _, k := range model.AngleKeys {
			if string(k) == key {
				known = true
				break
			}
		}
		if !known {
			c.add("angles."+key, "unknown angle key")
		}
	}
	return out
}

func validateTireSpec(c *collector, path string, in *model.TireSpecInput) model.TireSpec {
	if in == nil {
		c.add(path, "tire spec is required")
		return model.TireSpec{}
	}
	var out model.TireSpec
	if in.Brand == nil || strings.TrimSpace(*in.Brand) == "" {
		c.add(path+".brand", "is required")
	} else if canon, ok := MatchBrand(*in.Brand); ok {
		out.Brand = canon
	} else {
		c.add(path+".brand", "unrecognized tire brand %q", *in.Brand)
	}
	if in.PSI == nil {
		c.add(path+".psi", "is required")
	} else if *in.PSI < 0 || *in.PSI > model.MaxTirePSI {
		c.add(path+".psi", "must be between 0 and %d", model.MaxTirePSI)
	} else {
		out.PSI = *in.PSI
	}
	if in.Condition == nil {
		c.add(path+".condition", "is required")
	} else {
		cond := model.TireCondition(*in.Condition)
		if cond != model.TireOriginal && cond != model.TireRecap {
			c.add(path+".condition", "must be ORI or RE")
		}
		out.Condition = cond
	}
	return out
}

func validateAxleSide(c *collector, path string, in *model.AxleSideInput, dual bool) model.AxleSide {
	if in == nil {
		c.add(path, "side is required")
		return model.AxleSide{}
	}
	out := model.AxleSide{
		Photo: validPhoto(c, path+".photo", in.Photo, false),
		Outer: validateTireSpec(c, path+".outer", in.Outer),
	}
	if dual && in.Inner == nil {
		c.add(path+".inner", "inner tire is required on DUAL axles")
	}
	if in.Inner != nil {
		inner := validateTireSpec(c, path+".inner", in.Inner)
		out.Inner = &inner
	}
	return out
}

func validateAxles(c *collector, in []model.AxleInput) []model.Axle {
	if len(in) < model.MinAxles || len(in) > model.MaxAxles {
		c.add("axles", "must have between %d and %d axles", model.MinAxles, model.MaxAxles)
	}
	seen := make(map[int]bool)
	out := make([]model.Axle, 0, len(in))
	for i, a := range in {
		path := fmt.Sprintf("axles[%d]", i)
		var axle model.Axle
		if a.Number == nil {
			c.add(path+".number", "is required")
		} else if *a.Number < 1 || *a.Number > model.MaxAxles {
			c.add(path+".number", "must be between 1 and %d", model.MaxAxles)
		} else if seen[*a.Number] {
			c.add(path+".number", "duplicate axle number %d", *a.Number)
		} else {
			seen[*a.Number] = true
			axle.Number = *a.Number
		}
		dual := false
		if a.Type == nil {
			c.add(path+".type", "is required")
		} else {
			t := model.AxleType(*a.Type)
			if t != model.AxleSingle && t != model.AxleDual {
				c.add(path+".type", "must be SINGLE or DUAL")
			}
			axle.Type = t
			dual = t == model.AxleDual
		}
		axle.Left = validateAxleSide(c, path+".left", a.Left, dual)
		axle.Right = validateAxleSide(c, path+".right", a.Right, dual)
		out = append(out, axle)
	}
	// Canonical order for the finalizer's deterministic traversal.
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func validateChecklist(c *collector, section string, in map[string]*bool, keys []string) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, key := range keys {
		v, ok := in[key]
		if !ok || v == nil {
			c.add(section+"."+key, "is required")
			continue
		}
		out[key] = *v
	}
	return out
}

func validateDamages(c *collector, in []model.DamageInput) []model.Damage {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Damage, 0, len(in))
	for i, d := range in {
		path := fmt.Sprintf("damages[%d]", i)
		var dmg model.Damage
		if d.Location == nil {
			c.add(path+".location", "is required")
		} else {
			loc := model.DamageLocation(*d.Location)
			ok := false
			for _, known := range model.DamageLocations {
				if loc == known {
					ok = true
					break
				}
			}
			if !ok {
				c.add(path+".location", "unknown damage location %q", *d.Location)
			}
			dmg.Location = loc
		}
		if d.Type == nil {
			c.add(path+".type", "is required")
		} else {
			dt := model.DamageType(*d.Type)
			ok := false
			for _, known := range model.DamageTypes {
				if dt == known {
					ok = true
					break
				}
			}
			if !ok {
				c.add(path+".type", "unknown damage type %q", *d.Type)
			}
			dmg.Type = dt
		}
		dmg.Photo = validPhoto(c, path+".photo", d.Photo, false)
		if d.NewDamage == nil {
			c.add(path+".newDamage", "is required")
		} else {
			dmg.NewDamage = *d.NewDamage
		}
		if d.Comment != nil {
			dmg.Comment = strings.TrimSpace(*d.Comment)
		}
		out = append(out, dmg)
	}
	return out
}

func validateTrailerInput(c *collector, in *model.TrailerInput) *model.Trailer {
	t := &model.Trailer{
		Number:       requiredString(c, "trailer.number", in.Number),
		Owner:        requiredString(c, "trailer.owner", in.Owner),
		Make:         requiredString(c, "trailer.make", in.Make),
		Model:        requiredString(c, "trailer.model", in.Model),
		VIN:          requiredString(c, "trailer.vin", in.VIN),
		Plate:        requiredString(c, "trailer.plate", in.Plate),
		Jurisdiction: requiredString(c, "trailer.jurisdiction", in.Jurisdiction),
	}
	if in.Year == nil {
		c.add("trailer.year", "is required")
	} else if *in.Year < 1950 || *in.Year > 2100 {
		c.add("trailer.year", "is out of range")
	} else {
		t.Year = *in.Year
	}
	if in.Type == nil {
		c.add("trailer.type", "is required")
	} else {
		tt := model.TrailerType(*in.Type)
		ok := false
		for _, known := range model.TrailerTypes {
			if tt == known {
				ok = true
				break
			}
		}
		if !ok {
			c.add("trailer.type", "unknown trailer type %q", *in.Type)
		}
		t.Type = tt
	}
	expiry := requiredDate(c, "trailer.inspectionExpiry", in.InspectionExpiry)
	if expiry != "" {
		t.InspectionExpiry, _ = time.Parse(dateLayout, expiry)
	}
	return t
}
