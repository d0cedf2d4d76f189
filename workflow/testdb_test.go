package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/mmdatafocus/vendor_credits/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testBusinessId = "biz-1"

var testToday = time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory SQLite database with the vendor credit tables.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDatabase(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *VendorCreditService {
	t.Helper()
	s := NewVendorCreditService(db, config.NewLogger(io.Discard), NewLocalLocker())
	s.Now = func() time.Time { return testToday }
	return s
}

func testContext() context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), testBusinessId)
	return utils.SetCorrelationIdInContext(ctx, "corr-1")
}

func seedCredit(t *testing.T, db *gorm.DB, amount string, status models.VendorCreditStatus) models.VendorCredit {
	t.Helper()
	credit := models.VendorCredit{
		BusinessId:         testBusinessId,
		VendorId:           1,
		VendorName:         "Acme Supplies",
		VendorCreditNumber: "VC-0001",
		VendorCreditDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		SubTotal:           d("1000"),
		Amount:             d(amount),
		Balance:            d(amount),
		CurrentStatus:      status,
		Details: []models.VendorCreditItem{
			{ItemName: "Widget", Quantity: d("2"), Rate: d("500"), Tax: models.TaxTagGst18},
		},
	}
	if err := db.Create(&credit).Error; err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	return credit
}

func seedBill(t *testing.T, db *gorm.DB, vendorId int, number, balanceDue string, status models.BillStatus) models.Bill {
	t.Helper()
	bill := models.Bill{
		BusinessId:    testBusinessId,
		VendorId:      vendorId,
		BillNumber:    number,
		BillDate:      time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Total:         d(balanceDue),
		BalanceDue:    d(balanceDue),
		CurrentStatus: status,
	}
	if err := db.Create(&bill).Error; err != nil {
		t.Fatalf("seed bill: %v", err)
	}
	return bill
}

func loadCredit(t *testing.T, db *gorm.DB, id int) models.VendorCredit {
	t.Helper()
	var credit models.VendorCredit
	if err := db.First(&credit, id).Error; err != nil {
		t.Fatalf("load credit %d: %v", id, err)
	}
	return credit
}

func loadBill(t *testing.T, db *gorm.DB, id int) models.Bill {
	t.Helper()
	var bill models.Bill
	if err := db.First(&bill, id).Error; err != nil {
		t.Fatalf("load bill %d: %v", id, err)
	}
	return bill
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []config.PubSubMessage
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, msg config.PubSubMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.sent = append(p.sent, msg)
	return fmt.Sprintf("msg-%d", len(p.sent)), nil
}
