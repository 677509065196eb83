package model

// SystemStats backs the dashboard summary cards.
type SystemStats struct {
	TotalUnits       int     `json:"totalUnits"`
	OnlineUnits      int     `json:"onlineUnits"`
	StorageUsed      string  `json:"storageUsed"`
	UptimePercentage float64 `json:"uptimePercentage"`
}
