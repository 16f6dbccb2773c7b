package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// GeoPoint represents a geographic coordinate (WGS 84) in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinate is a station location as read from the source, still unparsed.
type Coordinate struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Point parses the raw latitude and longitude.
func (c Coordinate) Point() (GeoPoint, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(c.Lat), 64)
	if err != nil {
		return GeoPoint{}, &ParseError{Field: "latitude", Value: c.Lat, Err: err}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(c.Lon), 64)
	if err != nil {
		return GeoPoint{}, &ParseError{Field: "longitude", Value: c.Lon, Err: err}
	}
	return GeoPoint{Lat: lat, Lon: lon}, nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%s, %s)", c.Lat, c.Lon)
}
