package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/report"
	"finbot/internal/storage"
)

type fakeStore struct {
	categories map[core.TransactionType][]core.Category
	saved      []core.Transaction
	rows       []storage.TransactionRow
	users      map[int64]string
	saveErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: map[core.TransactionType][]core.Category{
			core.Expense: {
				{ID: 1, Name: "Ăn uống", Type: core.Expense},
				{ID: 2, Name: "Đi lại", Type: core.Expense},
			},
			core.Income: {
				{ID: 6, Name: "Lương", Type: core.Income},
			},
		},
		users: make(map[int64]string),
	}
}

func (f *fakeStore) EnsureUser(ctx context.Context, id int64, username string) error {
	if _, ok := f.users[id]; !ok {
		f.users[id] = username
	}
	return nil
}

func (f *fakeStore) CategoriesByType(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	return f.categories[t], nil
}

func (f *fakeStore) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, tx)
	return int64(len(f.saved)), nil
}

func (f *fakeStore) TransactionsByUser(ctx context.Context, userID int64) ([]storage.TransactionRow, error) {
	return f.rows, nil
}

type fakeReporter struct {
	summary *report.Summary
	err     error
}

func (f fakeReporter) Generate(ctx context.Context, userID int64) (*report.Summary, error) {
	return f.summary, f.err
}

const (
	testChat = int64(100)
	testUser = int64(100)
)

func newTestController(store *fakeStore) *Controller {
	c := NewController(store, fakeReporter{})
	c.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

// runAddFlow walks the full dialogue up to (not including) the currency press.
func runAddFlow(t *testing.T, c *Controller, amountText string) {
	t.Helper()
	ctx := context.Background()

	if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "add"); err != nil {
		t.Fatalf("/add: %v", err)
	}
	if _, err := c.HandleCallback(ctx, testChat, testUser, "expense"); err != nil {
		t.Fatalf("type press: %v", err)
	}
	if _, err := c.HandleText(ctx, testChat, testUser, amountText); err != nil {
		t.Fatalf("amount text: %v", err)
	}
}

func TestFullAddTransactionFlow(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store)
	ctx := context.Background()

	replies, err := c.HandleCommand(ctx, testChat, testUser, "anna", "add")
	if err != nil {
		t.Fatalf("/add: %v", err)
	}
	if len(replies) != 1 || len(replies[0].Keyboard) != 1 || len(replies[0].Keyboard[0]) != 2 {
		t.Fatalf("expected expense/income keyboard, got %+v", replies)
	}
	if c.StateOf(testChat) != StateChooseCategoryType {
		t.Fatalf("state = %s", c.StateOf(testChat))
	}

	replies, err = c.HandleCallback(ctx, testChat, testUser, "expense")
	if err != nil {
		t.Fatalf("type press: %v", err)
	}
	if !replies[0].Edit {
		t.Fatal("category keyboard should edit the previous message")
	}
	if len(replies[0].Keyboard) != 2 {
		t.Fatalf("expected one button per expense category, got %+v", replies[0].Keyboard)
	}
	if c.StateOf(testChat) != StateEnterAmount {
		t.Fatalf("state = %s", c.StateOf(testChat))
	}

	// Pressing a category button carries no state; it is ignored.
	replies, err = c.HandleCallback(ctx, testChat, testUser, "Ăn uống")
	if err != nil || replies != nil {
		t.Fatalf("category press should be ignored, got %v / %v", replies, err)
	}

	replies, err = c.HandleText(ctx, testChat, testUser, "50000")
	if err != nil {
		t.Fatalf("amount text: %v", err)
	}
	if len(replies[0].Keyboard[0]) != 3 {
		t.Fatalf("expected VND/USD/EUR keyboard, got %+v", replies[0].Keyboard)
	}
	if c.StateOf(testChat) != StateChooseCurrency {
		t.Fatalf("state = %s", c.StateOf(testChat))
	}

	replies, err = c.HandleCallback(ctx, testChat, testUser, "VND")
	if err != nil {
		t.Fatalf("currency press: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d transactions, want 1", len(store.saved))
	}
	tx := store.saved[0]
	if tx.UserID != testUser || tx.Currency != "VND" || tx.Type != core.Expense {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("amount = %s", tx.Amount)
	}
	if !tx.Date.Equal(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", tx.Date)
	}
	if tx.CategoryID != 0 {
		t.Fatalf("category id should not be carried over, got %d", tx.CategoryID)
	}

	confirmation := replies[0].Text
	for _, want := range []string{"50000", "VND", "expense"} {
		if !strings.Contains(confirmation, want) {
			t.Fatalf("confirmation %q missing %q", confirmation, want)
		}
	}

	if c.StateOf(testChat) != StateIdle {
		t.Fatalf("state after completion = %s", c.StateOf(testChat))
	}
}

func TestInvalidAmountReprompts(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store)
	ctx := context.Background()

	if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "add"); err != nil {
		t.Fatalf("/add: %v", err)
	}
	if _, err := c.HandleCallback(ctx, testChat, testUser, "income"); err != nil {
		t.Fatalf("type press: %v", err)
	}

	for _, bad := range []string{"abc", "", "   ", "1.2.3", "50k"} {
		replies, err := c.HandleText(ctx, testChat, testUser, bad)
		if err != nil {
			t.Fatalf("%q: %v", bad, err)
		}
		if len(replies) != 1 || !strings.Contains(replies[0].Text, "hợp lệ") {
			t.Fatalf("%q: expected re-prompt, got %+v", bad, replies)
		}
		if c.StateOf(testChat) != StateEnterAmount {
			t.Fatalf("%q: state = %s", bad, c.StateOf(testChat))
		}
	}

	if len(store.saved) != 0 {
		t.Fatalf("invalid input created %d transactions", len(store.saved))
	}
}

func TestCancelFromEveryState(t *testing.T) {
	ctx := context.Background()

	steps := []struct {
		name    string
		advance func(t *testing.T, c *Controller)
	}{
		{"choose action", func(t *testing.T, c *Controller) {
			if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "start"); err != nil {
				t.Fatal(err)
			}
		}},
		{"choose category type", func(t *testing.T, c *Controller) {
			if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "add"); err != nil {
				t.Fatal(err)
			}
		}},
		{"enter amount", func(t *testing.T, c *Controller) {
			if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "add"); err != nil {
				t.Fatal(err)
			}
			if _, err := c.HandleCallback(ctx, testChat, testUser, "expense"); err != nil {
				t.Fatal(err)
			}
		}},
		{"choose currency", func(t *testing.T, c *Controller) {
			runAddFlow(t, c, "123")
		}},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			store := newFakeStore()
			c := newTestController(store)
			step.advance(t, c)

			replies, err := c.HandleCommand(ctx, testChat, testUser, "anna", "cancel")
			if err != nil {
				t.Fatalf("/cancel: %v", err)
			}
			if !strings.Contains(replies[0].Text, "hủy") {
				t.Fatalf("unexpected cancel reply: %q", replies[0].Text)
			}
			if c.StateOf(testChat) != StateIdle {
				t.Fatalf("state after cancel = %s", c.StateOf(testChat))
			}
			if len(store.saved) != 0 {
				t.Fatalf("cancel created %d transactions", len(store.saved))
			}

			// Text and button presses after cancel do nothing.
			if replies, _ := c.HandleText(ctx, testChat, testUser, "500"); replies != nil {
				t.Fatalf("text after cancel produced %+v", replies)
			}
			if replies, _ := c.HandleCallback(ctx, testChat, testUser, "VND"); replies != nil {
				t.Fatalf("press after cancel produced %+v", replies)
			}
		})
	}
}

func TestStartRegistersUserAndShowsMenu(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store)

	replies, err := c.HandleCommand(context.Background(), testChat, testUser, "anna", "start")
	if err != nil {
		t.Fatalf("/start: %v", err)
	}
	if store.users[testUser] != "anna" {
		t.Fatal("user was not registered")
	}
	if len(replies[0].Keyboard) != 4 {
		t.Fatalf("expected 4 menu actions, got %d", len(replies[0].Keyboard))
	}
	if c.StateOf(testChat) != StateChooseAction {
		t.Fatalf("state = %s", c.StateOf(testChat))
	}
}

func TestMenuDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("add transaction button", func(t *testing.T) {
		c := newTestController(newFakeStore())
		if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "start"); err != nil {
			t.Fatal(err)
		}
		if _, err := c.HandleCallback(ctx, testChat, testUser, "add_transaction"); err != nil {
			t.Fatal(err)
		}
		if c.StateOf(testChat) != StateChooseCategoryType {
			t.Fatalf("state = %s", c.StateOf(testChat))
		}
	})

	t.Run("unwired buttons decline politely", func(t *testing.T) {
		for _, data := range []string{"set_budget", "saving_goal"} {
			c := newTestController(newFakeStore())
			if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "start"); err != nil {
				t.Fatal(err)
			}
			replies, err := c.HandleCallback(ctx, testChat, testUser, data)
			if err != nil {
				t.Fatal(err)
			}
			if len(replies) != 1 || replies[0].Keyboard != nil {
				t.Fatalf("%s: unexpected replies %+v", data, replies)
			}
			if c.StateOf(testChat) != StateIdle {
				t.Fatalf("%s: state = %s", data, c.StateOf(testChat))
			}
		}
	})
}

func TestPersistenceErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	c := newTestController(store)

	runAddFlow(t, c, "50000")

	_, err := c.HandleCallback(context.Background(), testChat, testUser, "VND")
	if err == nil {
		t.Fatal("expected persistence error to propagate")
	}
	// The turn aborts; scratch state is left as is.
	if c.StateOf(testChat) != StateChooseCurrency {
		t.Fatalf("state after failed save = %s", c.StateOf(testChat))
	}
}

func TestReportCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("no data", func(t *testing.T) {
		c := NewController(newFakeStore(), fakeReporter{summary: nil})
		replies, err := c.HandleCommand(ctx, testChat, testUser, "anna", "report")
		if err != nil {
			t.Fatalf("/report: %v", err)
		}
		if !strings.Contains(replies[0].Text, "Chưa có dữ liệu") {
			t.Fatalf("unexpected reply: %q", replies[0].Text)
		}
	})

	t.Run("summary with chart", func(t *testing.T) {
		summary := &report.Summary{
			TotalIncome:  decimal.NewFromInt(2400000),
			TotalExpense: decimal.NewFromInt(65000),
			ByCategory: map[report.CategoryKey]decimal.Decimal{
				{Type: core.Expense, Category: "Ăn uống"}: decimal.NewFromInt(50000),
			},
			ChartPath: "report.png",
		}
		c := NewController(newFakeStore(), fakeReporter{summary: summary})

		replies, err := c.HandleCommand(ctx, testChat, testUser, "anna", "report")
		if err != nil {
			t.Fatalf("/report: %v", err)
		}
		if len(replies) != 2 {
			t.Fatalf("expected text + photo, got %+v", replies)
		}
		if !strings.Contains(replies[0].Text, "2400000") || !strings.Contains(replies[0].Text, "65000") {
			t.Fatalf("summary text missing totals: %q", replies[0].Text)
		}
		if replies[1].PhotoPath != "report.png" {
			t.Fatalf("photo path = %q", replies[1].PhotoPath)
		}
	})

	t.Run("reporter failure", func(t *testing.T) {
		c := NewController(newFakeStore(), fakeReporter{err: errors.New("boom")})
		if _, err := c.HandleCommand(ctx, testChat, testUser, "anna", "report"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestExportCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("no data", func(t *testing.T) {
		c := newTestController(newFakeStore())
		replies, err := c.HandleCommand(ctx, testChat, testUser, "anna", "export")
		if err != nil {
			t.Fatalf("/export: %v", err)
		}
		if replies[0].Document != nil {
			t.Fatal("no document expected without transactions")
		}
	})

	t.Run("with data", func(t *testing.T) {
		store := newFakeStore()
		store.rows = []storage.TransactionRow{{
			ID:       1,
			UserID:   testUser,
			Date:     time.Now(),
			Amount:   decimal.NewFromInt(50000),
			Currency: "VND",
			Type:     core.Expense,
		}}
		c := newTestController(store)

		replies, err := c.HandleCommand(ctx, testChat, testUser, "anna", "export")
		if err != nil {
			t.Fatalf("/export: %v", err)
		}
		doc := replies[0].Document
		if doc == nil || doc.Name != "transactions.csv" {
			t.Fatalf("unexpected document: %+v", doc)
		}
		if !strings.Contains(string(doc.Data), "50000,VND,expense") {
			t.Fatalf("csv missing row: %q", doc.Data)
		}
	})
}

func TestHelpListsCommands(t *testing.T) {
	c := newTestController(newFakeStore())
	replies, err := c.HandleCommand(context.Background(), testChat, testUser, "anna", "help")
	if err != nil {
		t.Fatalf("/help: %v", err)
	}
	for _, cmd := range []string{"/start", "/add", "/report", "/budget", "/goals", "/export", "/help"} {
		if !strings.Contains(replies[0].Text, cmd) {
			t.Fatalf("help text missing %s", cmd)
		}
	}
}
