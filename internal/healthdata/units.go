package healthdata

// MgPerDLPerMmolPerL converts blood glucose from mmol/L to mg/dL.
const MgPerDLPerMmolPerL = 18.0182

// DistanceUnit is the unit of a distance or length value. The zero value
// means meters.
type DistanceUnit string

const (
	Meters     DistanceUnit = "m"
	Kilometers DistanceUnit = "km"
	Miles      DistanceUnit = "mi"
	Feet       DistanceUnit = "ft"
	Centimeter DistanceUnit = "cm"
	Inches     DistanceUnit = "in"
)

// OrDefault returns u, or Meters when u is unset.
func (u DistanceUnit) OrDefault() DistanceUnit {
	if u == "" {
		return Meters
	}
	return u
}

// WeightUnit is the unit of a mass value. The zero value means kilograms.
type WeightUnit string

const (
	Kilograms WeightUnit = "kg"
	Grams     WeightUnit = "g"
	Pounds    WeightUnit = "lb"
	Stones    WeightUnit = "st"
)

// OrDefault returns u, or Kilograms when u is unset.
func (u WeightUnit) OrDefault() WeightUnit {
	if u == "" {
		return Kilograms
	}
	return u
}

// TemperatureUnit is the unit of a temperature value. The zero value means
// degrees Celsius.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "degC"
	Fahrenheit TemperatureUnit = "degF"
	Kelvin     TemperatureUnit = "K"
)

// OrDefault returns u, or Celsius when u is unset.
func (u TemperatureUnit) OrDefault() TemperatureUnit {
	if u == "" {
		return Celsius
	}
	return u
}

// VolumeUnit is the unit of a fluid volume. The zero value means liters.
type VolumeUnit string

const (
	Liters      VolumeUnit = "L"
	Milliliters VolumeUnit = "mL"
	FluidOunces VolumeUnit = "fl_oz"
)

// OrDefault returns u, or Liters when u is unset.
func (u VolumeUnit) OrDefault() VolumeUnit {
	if u == "" {
		return Liters
	}
	return u
}
