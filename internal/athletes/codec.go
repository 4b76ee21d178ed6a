package athletes

import (
	"time"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// The store must never see an explicit "no value" marker: on merge updates
// an omitted field keeps its prior value while an explicit null would clear
// it on some backends. Every encoder below therefore omits absent fields
// entirely instead of writing placeholders.

func createRequestToFields(req CreateAthleteRequest, now time.Time) map[string]any {
	fields := map[string]any{
		"name":            req.Name,
		"sport":           req.Sport,
		"level":           string(req.Level),
		"scouting_status": string(req.ScoutingStatus),
		"status":          string(req.Status),
		"created_at":      now,
		"updated_at":      now,
	}
	putOptionalInt(fields, "age", req.Age)
	putOptionalString(fields, "position", req.Position)
	putOptionalString(fields, "county", req.County)
	putOptionalString(fields, "location", req.Location)
	putOptionalString(fields, "bio", req.Bio)
	putOptionalString(fields, "training_program", req.TrainingProgram)
	putOptionalString(fields, "created_by", req.CreatedBy)
	if req.Contact != nil {
		fields["contact"] = contactToMap(*req.Contact)
	}
	if req.Social != nil {
		fields["social"] = socialToMap(*req.Social)
	}
	if req.Physical != nil {
		fields["physical"] = physicalToMap(*req.Physical)
	}
	if len(req.Stats) > 0 {
		fields["stats"] = statsToMap(req.Stats)
	}
	return fields
}

func updateRequestToFields(req UpdateAthleteRequest, now time.Time) map[string]any {
	fields := map[string]any{
		"updated_at": now,
	}
	putOptionalString(fields, "name", req.Name)
	putOptionalString(fields, "sport", req.Sport)
	if req.Level != nil {
		fields["level"] = string(*req.Level)
	}
	if req.ScoutingStatus != nil {
		fields["scouting_status"] = string(*req.ScoutingStatus)
	}
	if req.Status != nil {
		fields["status"] = string(*req.Status)
	}
	putOptionalInt(fields, "age", req.Age)
	putOptionalString(fields, "position", req.Position)
	putOptionalString(fields, "county", req.County)
	putOptionalString(fields, "location", req.Location)
	putOptionalString(fields, "bio", req.Bio)
	putOptionalString(fields, "training_program", req.TrainingProgram)
	if req.Contact != nil {
		fields["contact"] = contactToMap(*req.Contact)
	}
	if req.Social != nil {
		fields["social"] = socialToMap(*req.Social)
	}
	if req.Physical != nil {
		fields["physical"] = physicalToMap(*req.Physical)
	}
	if req.Stats != nil {
		fields["stats"] = statsToMap(req.Stats)
	}
	return fields
}

func mediaToFields(items []models.MediaItem) []any {
	out := make([]any, len(items))
	for i, m := range items {
		entry := map[string]any{
			"id":          m.ID,
			"url":         m.URL,
			"type":        string(m.Type),
			"uploaded_at": m.UploadedAt,
		}
		if m.Caption != "" {
			entry["caption"] = m.Caption
		}
		if m.SizeBytes > 0 {
			entry["size_bytes"] = m.SizeBytes
		}
		if m.MimeType != "" {
			entry["mime_type"] = m.MimeType
		}
		out[i] = entry
	}
	return out
}

func putOptionalString(fields map[string]any, key string, v *string) {
	if v != nil {
		fields[key] = *v
	}
}

func putOptionalInt(fields map[string]any, key string, v *int) {
	if v != nil {
		fields[key] = *v
	}
}

func contactToMap(c models.Contact) map[string]any {
	out := map[string]any{}
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Phone != "" {
		out["phone"] = c.Phone
	}
	return out
}

func socialToMap(s models.SocialLinks) map[string]any {
	out := map[string]any{}
	if s.Facebook != "" {
		out["facebook"] = s.Facebook
	}
	if s.Instagram != "" {
		out["instagram"] = s.Instagram
	}
	if s.Twitter != "" {
		out["twitter"] = s.Twitter
	}
	return out
}

func physicalToMap(p models.Physical) map[string]any {
	out := map[string]any{}
	if p.HeightCm != nil {
		out["height_cm"] = *p.HeightCm
	}
	if p.WeightKg != nil {
		out["weight_kg"] = *p.WeightKg
	}
	return out
}

func statsToMap(stats map[string]float64) map[string]any {
	out := make(map[string]any, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out
}

// docToAthlete lifts a store document into the domain model. Scalar types
// vary by backend (the memory engine round-trips Go values, the JSON and
// BSON adapters return decoded wire types), so every accessor tolerates the
// union.
func docToAthlete(doc docstore.Document) models.Athlete {
	f := doc.Fields
	a := models.Athlete{
		ID:             doc.ID,
		Name:           fieldString(f, "name"),
		Sport:          fieldString(f, "sport"),
		Level:          models.Level(fieldString(f, "level")),
		ScoutingStatus: models.ScoutingStatus(fieldString(f, "scouting_status")),
		Status:         models.Status(fieldString(f, "status")),
		CreatedAt:      fieldTime(f, "created_at"),
		UpdatedAt:      fieldTime(f, "updated_at"),
	}
	a.Age = fieldIntPtr(f, "age")
	a.Position = fieldStringPtr(f, "position")
	a.County = fieldStringPtr(f, "county")
	a.Location = fieldStringPtr(f, "location")
	a.Bio = fieldStringPtr(f, "bio")
	a.TrainingProgram = fieldStringPtr(f, "training_program")
	a.CreatedBy = fieldStringPtr(f, "created_by")

	if dob, ok := f["date_of_birth"]; ok {
		if t, ok := asTime(dob); ok {
			a.DateOfBirth = &t
		}
	}

	if m, ok := f["contact"].(map[string]any); ok {
		a.Contact = &models.Contact{
			Email: stringOf(m["email"]),
			Phone: stringOf(m["phone"]),
		}
	}
	if m, ok := f["social"].(map[string]any); ok {
		a.Social = &models.SocialLinks{
			Facebook:  stringOf(m["facebook"]),
			Instagram: stringOf(m["instagram"]),
			Twitter:   stringOf(m["twitter"]),
		}
	}
	if m, ok := f["physical"].(map[string]any); ok {
		p := models.Physical{}
		if v, ok := asInt(m["height_cm"]); ok {
			p.HeightCm = &v
		}
		if v, ok := asInt(m["weight_kg"]); ok {
			p.WeightKg = &v
		}
		a.Physical = &p
	}

	if m, ok := f["stats"].(map[string]any); ok {
		stats := make(map[string]float64, len(m))
		for k, v := range m {
			if n, ok := asFloat(v); ok {
				stats[k] = n
			}
		}
		a.Stats = stats
	}

	if raw, ok := f["media"].([]any); ok {
		for _, e := range raw {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			item := models.MediaItem{
				ID:       stringOf(m["id"]),
				URL:      stringOf(m["url"]),
				Type:     models.MediaType(stringOf(m["type"])),
				Caption:  stringOf(m["caption"]),
				MimeType: stringOf(m["mime_type"]),
			}
			if t, ok := asTime(m["uploaded_at"]); ok {
				item.UploadedAt = t
			}
			if n, ok := asFloat(m["size_bytes"]); ok {
				item.SizeBytes = int64(n)
			}
			a.Media = append(a.Media, item)
		}
	}

	return a
}

func docsToAthletes(docs []docstore.Document) []models.Athlete {
	out := make([]models.Athlete, len(docs))
	for i, d := range docs {
		out[i] = docToAthlete(d)
	}
	return out
}

func fieldString(f map[string]any, key string) string {
	return stringOf(f[key])
}

func fieldStringPtr(f map[string]any, key string) *string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func fieldIntPtr(f map[string]any, key string) *int {
	v, ok := asInt(f[key])
	if !ok {
		return nil
	}
	return &v
}

func fieldTime(f map[string]any, key string) time.Time {
	t, _ := asTime(f[key])
	return t
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}
