package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"restaurant-system/internal/common/money"
	"restaurant-system/internal/domain"
	"restaurant-system/internal/microservices/analytics/repository"
)

type Tab string

const (
	TabAll       Tab = "all"
	TabCancelled Tab = "cancelled"
)

func ParseTab(v string) (Tab, error) {
	switch Tab(v) {
	case "", TabAll:
		return TabAll, nil
	case TabCancelled:
		return TabCancelled, nil
	}
	return "", fmt.Errorf("unknown analytics tab %q", v)
}

type DailyStats struct {
	Date         string         `json:"date"`
	TotalOrders  int            `json:"total_orders"`
	TotalRevenue float64        `json:"total_revenue"`
	Revenue      string         `json:"revenue_display"`
	ItemsSold    int            `json:"items_sold"`
	Orders       []domain.Order `json:"orders"`
}

type Summary struct {
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
	Revenue      string  `json:"revenue_display"`
	ItemsSold    int     `json:"items_sold"`
}

type Report struct {
	Tab     Tab          `json:"tab"`
	Summary Summary      `json:"summary"`
	Days    []DailyStats `json:"days"`
}

// Daily groups orders by their local calendar date in loc. The all tab
// excludes cancelled orders, the cancelled tab holds only those. Days are
// newest first; orders keep their input order within a day.
func Daily(orders []domain.Order, tab Tab, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	byDate := map[string]*DailyStats{}
	var dates []string
	for _, o := range orders {
		cancelled := o.Status == domain.StatusCancelled
		if (tab == TabCancelled) != cancelled {
			continue
		}
		date := o.CreatedAt.In(loc).Format(time.DateOnly)
		st, ok := byDate[date]
		if !ok {
			st = &DailyStats{Date: date}
			byDate[date] = st
			dates = append(dates, date)
		}
		st.TotalOrders++
		st.TotalRevenue += o.Total
		st.ItemsSold += domain.ItemsCount(o.Items)
		st.Orders = append(st.Orders, o)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	r := Report{Tab: tab, Days: make([]DailyStats, 0, len(dates))}
	for _, d := range dates {
		st := byDate[d]
		st.Revenue = money.FormatINR(st.TotalRevenue)
		r.Days = append(r.Days, *st)
		r.Summary.TotalOrders += st.TotalOrders
		r.Summary.TotalRevenue += st.TotalRevenue
		r.Summary.ItemsSold += st.ItemsSold
	}
	r.Summary.Revenue = money.FormatINR(r.Summary.TotalRevenue)
	return r
}

type AnalyticsServiceInterface interface {
	Daily(orders []domain.Order, tab Tab) Report
	// Recorded sums the paid entries written at table close.
	Recorded(ctx context.Context) (Summary, error)
}

type AnalyticsService struct {
	repo repository.AnalyticsRepositoryInterface
	loc  *time.Location
}

func NewAnalyticsService(repo repository.AnalyticsRepositoryInterface, loc *time.Location) AnalyticsServiceInterface {
	return &AnalyticsService{repo: repo, loc: loc}
}

func (as *AnalyticsService) Daily(orders []domain.Order, tab Tab) Report {
	return Daily(orders, tab, as.loc)
}

func (as *AnalyticsService) Recorded(ctx context.Context) (Summary, error) {
	entries, err := as.repo.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, e := range entries {
		if e.PaymentStatus != repository.PaymentPaid {
			continue
		}
		s.TotalOrders++
		s.TotalRevenue += e.TotalAmount
	}
	s.Revenue = money.FormatINR(s.TotalRevenue)
	return s, nil
}
