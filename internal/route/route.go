// server/internal/route/route.go
package route

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"rl-express-api-server/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ErrTooFewStops is returned when an optimization is requested with
// fewer than two pending deliveries.
var ErrTooFewStops = errors.New("at least 2 deliveries are required to optimize the route")

func postalDigits(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Optimize orders the stops by the numeric digits of the postal code,
// ascending. Nearby Brazilian postal codes share prefixes, which makes
// this a cheap deterministic stand-in for true geographic routing; the
// actual turn-by-turn ordering is delegated to the external maps service.
func Optimize(pending []models.Delivery) ([]models.Delivery, error) {
	if len(pending) < 2 {
		return nil, ErrTooFewStops
	}
	ordered := make([]models.Delivery, len(pending))
	copy(ordered, pending)
	sort.SliceStable(ordered, func(i, j int) bool {
		return postalDigits(ordered[i].Address.PostalCode) < postalDigits(ordered[j].Address.PostalCode)
	})
	return ordered, nil
}

// DirectionsURL builds a Google Maps directions link visiting every stop
// in order.
func DirectionsURL(stops []models.Delivery) string {
	parts := make([]string, 0, len(stops))
	for _, d := range stops {
		parts = append(parts, url.PathEscape(d.Address.FullAddress))
	}
	return "https://www.google.com/maps/dir/" + strings.Join(parts, "/")
}

// SearchURL builds a single-address maps link.
func SearchURL(address string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(address)
}

// MultiStopURL builds a directions link ending at the given delivery with
// the remaining stops as waypoints.
func MultiStopURL(destination models.Delivery, others []models.Delivery) string {
	mapsURL := "https://www.google.com/maps/dir/?api=1&destination=" + url.QueryEscape(destination.Address.FullAddress)
	waypoints := make([]string, 0, len(others))
	for _, d := range others {
		if d.ID == destination.ID {
			continue
		}
		waypoints = append(waypoints, url.QueryEscape(d.Address.FullAddress))
	}
	if len(waypoints) > 0 {
		mapsURL += "&waypoints=" + strings.Join(waypoints, "%7C") + "&dirflg=d&travelmode=driving"
	}
	return mapsURL
}

// MapPoint is a plottable stop. Deliveries without coordinates are not
// representable on the map and are skipped.
type MapPoint struct {
	ID           string  `json:"id"`
	CustomerName string  `json:"customerName"`
	FullAddress  string  `json:"fullAddress"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// MapPoints returns the stops that carry coordinates.
func MapPoints(stops []models.Delivery) []MapPoint {
	var points []MapPoint
	for _, d := range stops {
		if !d.Address.HasCoordinates() {
			continue
		}
		points = append(points, MapPoint{
			ID:           d.ID,
			CustomerName: d.CustomerName,
			FullAddress:  d.Address.FullAddress,
			Lat:          *d.Address.Lat,
			Lng:          *d.Address.Lng,
		})
	}
	return points
}

// TotalDistanceMeters sums the great-circle leg distances between
// consecutive coordinate-bearing stops. Stops without coordinates do not
// contribute a leg.
func TotalDistanceMeters(stops []models.Delivery) float64 {
	var total float64
	var prev *orb.Point
	for _, d := range stops {
		if !d.Address.HasCoordinates() {
			continue
		}
		point := orb.Point{*d.Address.Lng, *d.Address.Lat}
		if prev != nil {
			total += geo.Distance(*prev, point)
		}
		prev = &point
	}
	return total
}

// ShareText renders the active route as a share-sheet payload.
func ShareText(stops []models.Delivery, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚚 *ROTA DE ENTREGA - RL EXPRESS*\n📅 Data: %s\n", now.Format("02/01/2006"))
	for i, d := range stops {
		address := d.Address.FullAddress
		city := ""
		if d.Address.City != "" {
			city = " - " + d.Address.City
		}
		fmt.Fprintf(&b, "\n%d️⃣ *%s*\n📍 %s%s", i+1, d.CustomerName, address, city)
	}
	fmt.Fprintf(&b, "\n\n🏁 *Total:* %d paradas.", len(stops))
	return b.String()
}
