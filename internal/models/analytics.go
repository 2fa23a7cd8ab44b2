package models

// Stats содержит сводные показатели для дашборда. Выручка в валюте, не в центах.
type Stats struct {
	TotalUsers     int     `json:"totalUsers"`
	ActiveUsers    int     `json:"activeUsers"`
	TotalRevenue   float64 `json:"totalRevenue"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
}

// RevenuePoint хранит выручку за календарный месяц.
type RevenuePoint struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// DistributionSlice описывает долю тенантов в категории POS с метаданными для графика.
type DistributionSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// LocationStat содержит количество тенантов и выручку по стране.
type LocationStat struct {
	Country string  `json:"country"`
	Users   int     `json:"users"`
	Revenue float64 `json:"revenue"`
}

// CountryCount хранит результат группировки тенантов по стране.
type CountryCount struct {
	Country string
	Users   int
}

// Charts содержит данные графиков дашборда.
type Charts struct {
	RevenueTrends    []RevenuePoint      `json:"revenueTrends"`
	UserDistribution []DistributionSlice `json:"userDistribution"`
	LocationData     []LocationStat      `json:"locationData"`
}

// Overview содержит полный набор аналитики для дашборда.
type Overview struct {
	Stats  Stats  `json:"stats"`
	Charts Charts `json:"charts"`
}
