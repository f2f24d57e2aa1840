package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	masterdata "airmon-cloud/internal/masterdata/domain"
)

type stationDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	RegionID  string    `json:"regionId"`
	Assigned  bool      `json:"assigned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type stationPageDTO struct {
	Stations   []stationDTO `json:"stations"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
	Page       int          `json:"page"`
}

type regionDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type regionPageDTO struct {
	Regions    []regionDTO `json:"regions"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
	Page       int         `json:"page"`
}

func stationToDTO(station masterdata.Station) stationDTO {
	return stationDTO{
		ID:        station.ID,
		Name:      station.Name,
		Latitude:  station.Latitude,
		Longitude: station.Longitude,
		RegionID:  station.RegionID,
		Assigned:  station.Assigned,
		CreatedAt: station.CreatedAt,
		UpdatedAt: station.UpdatedAt,
	}
}

func stationsToDTO(stations []masterdata.Station) []stationDTO {
	out := make([]stationDTO, 0, len(stations))
	for _, station := range stations {
		out = append(out, stationToDTO(station))
	}
	return out
}

func stationPageToDTO(page *masterdata.StationPage) stationPageDTO {
	return stationPageDTO{
		Stations:   stationsToDTO(page.Stations),
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Page:       page.Page,
	}
}

func regionToDTO(region masterdata.Region) regionDTO {
	return regionDTO{
		ID:        region.ID,
		Name:      region.Name,
		Latitude:  region.Latitude,
		Longitude: region.Longitude,
	}
}

func regionsToDTO(regions []masterdata.Region) []regionDTO {
	out := make([]regionDTO, 0, len(regions))
	for _, region := range regions {
		out = append(out, regionToDTO(region))
	}
	return out
}

func regionPageToDTO(page *masterdata.RegionPage) regionPageDTO {
	return regionPageDTO{
		Regions:    regionsToDTO(page.Regions),
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Page:       page.Page,
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMasterdataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, masterdata.ErrEmptyName),
		errors.Is(err, masterdata.ErrInvalidLocation),
		errors.Is(err, masterdata.ErrInvalidDeletePolicy):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, masterdata.ErrStationNotFound),
		errors.Is(err, masterdata.ErrRegionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, masterdata.ErrAlreadyAssigned),
		errors.Is(err, masterdata.ErrNotAssigned),
		errors.Is(err, masterdata.ErrDuplicateRegionName):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, masterdata.ErrStoreUnavailable):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
