package telemetry

// Fields is the fixed schema of optional sensor slots carried by every
// reading. A nil slot means the station did not report that channel, or the
// value was dropped during sanitization.
type Fields struct {
	Temp        *float64 `json:"temp,omitempty"`
	O3          *float64 `json:"o3,omitempty"`
	NO          *float64 `json:"no,omitempty"`
	NO2         *float64 `json:"no2,omitempty"`
	NOx         *float64 `json:"nox,omitempty"`
	SO2         *float64 `json:"so2,omitempty"`
	CO          *float64 `json:"co,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	AmbientTemp *float64 `json:"ambient_temp,omitempty"`
	RelHumidity *float64 `json:"rel_humidity,omitempty"`
	WindDir     *float64 `json:"wind_dir,omitempty"`
	SolarRad    *float64 `json:"solar_rad,omitempty"`
	PM10        *float64 `json:"pm10,omitempty"`
	PM25        *float64 `json:"pm2_5,omitempty"`
	TOC         *float64 `json:"toc,omitempty"`
	CO2         *float64 `json:"co2,omitempty"`
	O3B         *float64 `json:"o3_b,omitempty"`
}

// fieldSlot binds a field name to its slot so that sanitization, persistence
// and aggregation stay exhaustive over the whole schema.
type fieldSlot struct {
	name string
	get  func(*Fields) *float64
	set  func(*Fields, *float64)
}

var fieldSlots = [...]fieldSlot{
	{"temp", func(f *Fields) *float64 { return f.Temp }, func(f *Fields, v *float64) { f.Temp = v }},
	{"o3", func(f *Fields) *float64 { return f.O3 }, func(f *Fields, v *float64) { f.O3 = v }},
	{"no", func(f *Fields) *float64 { return f.NO }, func(f *Fields, v *float64) { f.NO = v }},
	{"no2", func(f *Fields) *float64 { return f.NO2 }, func(f *Fields, v *float64) { f.NO2 = v }},
	{"nox", func(f *Fields) *float64 { return f.NOx }, func(f *Fields, v *float64) { f.NOx = v }},
	{"so2", func(f *Fields) *float64 { return f.SO2 }, func(f *Fields, v *float64) { f.SO2 = v }},
	{"co", func(f *Fields) *float64 { return f.CO }, func(f *Fields, v *float64) { f.CO = v }},
	{"pressure", func(f *Fields) *float64 { return f.Pressure }, func(f *Fields, v *float64) { f.Pressure = v }},
	{"ambient_temp", func(f *Fields) *float64 { return f.AmbientTemp }, func(f *Fields, v *float64) { f.AmbientTemp = v }},
	{"rel_humidity", func(f *Fields) *float64 { return f.RelHumidity }, func(f *Fields, v *float64) { f.RelHumidity = v }},
	{"wind_dir", func(f *Fields) *float64 { return f.WindDir }, func(f *Fields, v *float64) { f.WindDir = v }},
	{"solar_rad", func(f *Fields) *float64 { return f.SolarRad }, func(f *Fields, v *float64) { f.SolarRad = v }},
	{"pm10", func(f *Fields) *float64 { return f.PM10 }, func(f *Fields, v *float64) { f.PM10 = v }},
	{"pm2_5", func(f *Fields) *float64 { return f.PM25 }, func(f *Fields, v *float64) { f.PM25 = v }},
	{"toc", func(f *Fields) *float64 { return f.TOC }, func(f *Fields, v *float64) { f.TOC = v }},
	{"co2", func(f *Fields) *float64 { return f.CO2 }, func(f *Fields, v *float64) { f.CO2 = v }},
	{"o3_b", func(f *Fields) *float64 { return f.O3B }, func(f *Fields, v *float64) { f.O3B = v }},
}

// FieldNames lists every sensor field in schema order.
func FieldNames() []string {
	names := make([]string, 0, len(fieldSlots))
	for _, slot := range fieldSlots {
		names = append(names, slot.name)
	}
	return names
}

// Value returns the named field's value if present.
func (f Fields) Value(name string) (float64, bool) {
	for _, slot := range fieldSlots {
		if slot.name == name {
			if v := slot.get(&f); v != nil {
				return *v, true
			}
			return 0, false
		}
	}
	return 0, false
}

// Set stores a value in the named slot; unknown names are ignored.
func (f *Fields) Set(name string, value float64) {
	for _, slot := range fieldSlots {
		if slot.name == name {
			v := value
			slot.set(f, &v)
			return
		}
	}
}

// IsEmpty reports whether no slot is present.
func (f Fields) IsEmpty() bool {
	for _, slot := range fieldSlots {
		if slot.get(&f) != nil {
			return false
		}
	}
	return true
}

// Sanitize drops every slot whose value is non-positive. Station hardware
// reports fault codes as zero or negative sentinels; keeping them would skew
// the aggregation denominators. Returns the cleaned fields and the names of
// dropped slots.
func (f Fields) Sanitize() (Fields, []string) {
	cleaned := f
	var dropped []string
	for _, slot := range fieldSlots {
		value := slot.get(&cleaned)
		if value != nil && *value <= 0 {
			slot.set(&cleaned, nil)
			dropped = append(dropped, slot.name)
		}
	}
	return cleaned, dropped
}

// SlotValues returns the slots in schema order, nil for absent ones.
func (f Fields) SlotValues() []*float64 {
	values := make([]*float64, 0, len(fieldSlots))
	for _, slot := range fieldSlots {
		values = append(values, slot.get(&f))
	}
	return values
}

// SetSlotValues assigns the slots in schema order.
func (f *Fields) SetSlotValues(values []*float64) {
	for i, slot := range fieldSlots {
		if i >= len(values) {
			return
		}
		slot.set(f, values[i])
	}
}
