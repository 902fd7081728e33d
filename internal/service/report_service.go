package service

import (
	"context"
	"sort"
	"time"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	chartDays    = 7
	topSellers   = 5
	keySeparator = "\x00"
)

type ReportService interface {
	Report(ctx context.Context) (*Report, error)
}

type Report struct {
	Summary Summary `json:"summary"`
	Alerts  Alerts  `json:"alerts"`
	Charts  Charts  `json:"charts"`
}

type Summary struct {
	TotalModalTersisa int64  `json:"total_modal_tersisa"`
	TotalModalTerjual int64  `json:"total_modal_terjual"`
	TotalPendapatan   int64  `json:"total_pendapatan"`
	TotalProfit       int64  `json:"total_profit"`
	MarginProfit      string `json:"margin_profit"`
	TotalItems        int    `json:"total_items"`
	TotalTransactions int    `json:"total_transactions"`
}

type Alerts struct {
	ExpiringSoon  []model.ItemView `json:"expiring_soon"`
	ExpiredItems  []model.ItemView `json:"expired_items"`
	LowStockItems []model.ItemView `json:"low_stock_items"`
}

type Charts struct {
	Last7Days       []DailyPerformance `json:"last_7_days"`
	TopSellingItems []TopSeller        `json:"top_selling_items"`
}

type DailyPerformance struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Revenue int64  `json:"revenue"`
	Profit  int64  `json:"profit"`
}

type TopSeller struct {
	Platform     string     `json:"platform"`
	Kind         model.Kind `json:"kind"`
	TotalSold    int        `json:"total_sold"`
	TotalRevenue int64      `json:"total_revenue"`
	TotalProfit  int64      `json:"total_profit"`
}

// ReportThresholds tune the alert buckets.
type ReportThresholds struct {
	LowStock     int
	ExpiringDays int
}

type reportService struct {
	items        repository.ItemRepository
	transactions repository.TransactionRepository
	thresholds   ReportThresholds
	loc          *time.Location
	now          func() time.Time
}

func NewReportService(store *repository.Store, thresholds ReportThresholds, loc *time.Location) ReportService {
	return &reportService{
		items:        store.Items,
		transactions: store.Transactions,
		thresholds:   thresholds,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *reportService) Report(ctx context.Context) (*Report, error) {
	items, err := s.items.FindAll(ctx)
	if err != nil {
		return nil, persistence("listing items", err)
	}
	txs, err := s.transactions.FindAll(ctx)
	if err != nil {
		return nil, persistence("listing transactions", err)
	}

	now := s.now()
	return &Report{
		Summary: summarize(items, txs),
		Alerts:  s.alerts(items, now),
		Charts: Charts{
			Last7Days:       lastDays(txs, now.In(s.loc), chartDays),
			TopSellingItems: topSelling(txs, topSellers),
		},
	}, nil
}

func summarize(items []model.Item, txs []model.Transaction) Summary {
	var sum Summary
	for _, item := range items {
		sum.TotalModalTersisa += item.CostPrice * int64(item.Stock)
	}
	for _, tx := range txs {
		sum.TotalPendapatan += tx.TotalSale
		sum.TotalProfit += tx.Profit
		sum.TotalModalTerjual += tx.TotalCost
	}
	sum.TotalItems = len(items)
	sum.TotalTransactions = len(txs)
	sum.MarginProfit = marginPercent(sum.TotalProfit, sum.TotalPendapatan)
	return sum
}

// marginPercent is profit / revenue * 100 with two decimals, "0.00" when
// there is no revenue.
func marginPercent(profit, revenue int64) string {
	if revenue == 0 {
		return "0.00"
	}
	return decimal.NewFromInt(profit).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(revenue)).
		StringFixed(2)
}

func (s *reportService) alerts(items []model.Item, now time.Time) Alerts {
	a := Alerts{
		ExpiringSoon:  []model.ItemView{},
		ExpiredItems:  []model.ItemView{},
		LowStockItems: []model.ItemView{},
	}
	for _, item := range items {
		view := item.View(now)
		switch days := view.DaysToExpire; {
		case days <= 0:
			a.ExpiredItems = append(a.ExpiredItems, view)
		case days <= s.thresholds.ExpiringDays:
			a.ExpiringSoon = append(a.ExpiringSoon, view)
		}
		if item.Stock < s.thresholds.LowStock {
			a.LowStockItems = append(a.LowStockItems, view)
		}
	}
	return a
}

// lastDays buckets transactions into the n calendar days ending on today's
// date in today's location, oldest first. Empty days are reported as zeros.
func lastDays(txs []model.Transaction, today time.Time, n int) []DailyPerformance {
	loc := today.Location()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(n - 1))

	days := make([]DailyPerformance, n)
	index := make(map[string]int, n)
	for i := range days {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		days[i] = DailyPerformance{Date: date}
		index[date] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.OccurredAt.In(loc).Format(dateLayout)]
		if !ok {
			continue
		}
		days[i].Count++
		days[i].Revenue += tx.TotalSale
		days[i].Profit += tx.Profit
	}
	return days
}

// topSelling groups sales by platform and kind and ranks the groups by units
// sold. Groups with equal totals keep the order in which they first sold.
func topSelling(txs []model.Transaction, limit int) []TopSeller {
	ordered := make([]model.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	groups := make([]TopSeller, 0)
	index := make(map[string]int)
	for _, tx := range ordered {
		key := tx.Platform + keySeparator + string(tx.Kind)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TopSeller{Platform: tx.Platform, Kind: tx.Kind})
		}
		groups[i].TotalSold += tx.Quantity
		groups[i].TotalRevenue += tx.TotalSale
		groups[i].TotalProfit += tx.Profit
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].TotalSold > groups[j].TotalSold })
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}
