package chart

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// Moon phase names, indexed by Sun-Moon elongation in 45 degree bands
// centred on 0, 45, ... 315.
var moonPhases = [8]string{
	"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous",
	"Full Moon", "Waning Gibbous", "Last Quarter", "Waning Crescent",
}

// orbit holds J2000 Keplerian elements and their rates per Julian century
// (JPL "Approximate Positions of the Planets", 1800-2050 AD).
type orbit struct {
	a, aDot         float64 // semi-major axis, au
	e, eDot         float64 // eccentricity
	incl, inclDot   float64 // inclination, deg
	meanL, meanLDot float64 // mean longitude, deg
	peri, periDot   float64 // longitude of perihelion, deg
	node, nodeDot   float64 // longitude of ascending node, deg
}

var (
	earthOrbit = orbit{1.00000261, 0.00000562, 0.01671123, -0.00004392, -0.00001531, -0.01294668, 100.46457166, 35999.37244981, 102.93768193, 0.32327364, 0, 0}

	planetOrbits = map[string]orbit{
		"mercury": {0.38709927, 0.00000037, 0.20563593, 0.00001906, 7.00497902, -0.00594749, 252.25032350, 149472.67411175, 77.45779628, 0.16047689, 48.33076593, -0.12534081},
		"venus":   {0.72333566, 0.00000390, 0.00677672, -0.00004107, 3.39467605, -0.00078890, 181.97909950, 58517.81538729, 131.60246718, 0.00268329, 76.67984255, -0.27769418},
		"mars":    {1.52371034, 0.00001847, 0.09339410, 0.00007882, 1.84969142, -0.00813131, -4.55343205, 19140.30268499, -23.94362959, 0.44441088, 49.55953891, -0.29257343},
		"jupiter": {5.20288700, -0.00011607, 0.04838624, -0.00013253, 1.30439695, -0.00183714, 34.39644051, 3034.74612775, 14.72847983, 0.21252668, 100.47390909, 0.20469106},
		"saturn":  {9.53667594, -0.00125060, 0.05386179, -0.00050991, 2.48599187, 0.00193609, 49.95424423, 1222.49362201, 92.59887831, -0.41897216, 113.66242448, -0.28867794},
	}
)

var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// Ephemeris is a built-in low-precision Provider. Positions are good to a
// fraction of a degree between 1800 and 2050, which is plenty for signs.
type Ephemeris struct{}

// NewEphemeris returns the built-in provider.
func NewEphemeris() *Ephemeris { return &Ephemeris{} }

// ChartData implements Provider.
func (e *Ephemeris) ChartData(ctx context.Context, dateKey string) (*Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day, err := types.ParseDateKey(dateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, types.JST)

	lon := Longitudes(at)
	data := &Data{
		Date:      dateKey,
		SunSign:   types.SignFromLongitude(lon["sun"]),
		MoonSign:  types.SignFromLongitude(lon["moon"]),
		Planets:   make(map[string]types.Sign, len(lon)),
		MoonPhase: MoonPhase(lon["moon"] - lon["sun"]),
	}
	for body, l := range lon {
		data.Planets[body] = types.SignFromLongitude(l)
	}
	logging.ChartDebug("%s: sun=%s moon=%s phase=%s", dateKey, data.SunSign, data.MoonSign, data.MoonPhase)
	return data, nil
}

// Longitudes returns geocentric ecliptic longitudes (degrees, of date) for
// every body in Bodies at instant t.
func Longitudes(t time.Time) map[string]float64 {
	d := t.Sub(j2000).Hours() / 24
	T := d / 36525
	precession := 1.3970 * T

	ex, ey, _ := earthOrbit.heliocentric(T)
	out := make(map[string]float64, len(Bodies))
	out["sun"] = normalize(deg(math.Atan2(-ey, -ex)) + precession)
	out["moon"] = normalize(moonLongitude(d))
	for body, o := range planetOrbits {
		x, y, _ := o.heliocentric(T)
		out[body] = normalize(deg(math.Atan2(y-ey, x-ex)) + precession)
	}
	return out
}

// MoonPhase names the phase for a Sun-Moon elongation in degrees.
func MoonPhase(elongation float64) string {
	idx := int(normalize(elongation+22.5)/45) % 8
	return moonPhases[idx]
}

// heliocentric returns J2000 ecliptic coordinates in au at T centuries.
func (o orbit) heliocentric(T float64) (x, y, z float64) {
	a := o.a + o.aDot*T
	e := o.e + o.eDot*T
	incl := rad(o.incl + o.inclDot*T)
	meanL := o.meanL + o.meanLDot*T
	peri := o.peri + o.periDot*T
	node := o.node + o.nodeDot*T

	M := rad(normalize(meanL - peri))
	omega := rad(peri - node)
	N := rad(node)

	E := solveKepler(M, e)
	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(omega), math.Sin(omega)
	cn, sn := math.Cos(N), math.Sin(N)
	ci, si := math.Cos(incl), math.Sin(incl)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

// solveKepler solves M = E - e sin E for E by Newton iteration.
func solveKepler(M, e float64) float64 {
	E := M + e*math.Sin(M)
	for i := 0; i < 30; i++ {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

// moonLongitude is a short lunar series, accurate to about 0.3 degrees.
// d is days since J2000.
func moonLongitude(d float64) float64 {
	L0 := 218.316 + 13.176396*d
	M := rad(134.963 + 13.064993*d)
	F := rad(93.272 + 13.229350*d)
	D := rad(297.850 + 12.190749*d)
	Ms := rad(357.529 + 0.98560028*d)

	return L0 +
		6.289*math.Sin(M) +
		1.274*math.Sin(2*D-M) +
		0.658*math.Sin(2*D) +
		0.214*math.Sin(2*M) -
		0.186*math.Sin(Ms) -
		0.114*math.Sin(2*F)
}

func normalize(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return x
}

func rad(x float64) float64 { return x * math.Pi / 180 }
func deg(x float64) float64 { return x * 180 / math.Pi }
