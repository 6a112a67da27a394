// Package bot drives the add-transaction dialogue and top-level commands,
// and bridges them onto the Telegram transport.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/report"
	"finbot/internal/storage"
)

// State is the position of one chat inside the add-transaction dialogue.
type State int

const (
	StateIdle State = iota
	StateChooseAction
	StateChooseCategoryType
	StateEnterAmount
	StateChooseCurrency
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChooseAction:
		return "choose_action"
	case StateChooseCategoryType:
		return "choose_category_type"
	case StateEnterAmount:
		return "enter_amount"
	case StateChooseCurrency:
		return "choose_currency"
	}
	return "unknown"
}

// scratch is the per-conversation working record. It only ever holds the
// partial transaction of the current dialogue.
type scratch struct {
	state  State
	txType core.TransactionType
	amount decimal.Decimal
}

// Button is one inline keyboard option: visible label plus the opaque
// payload echoed back on press.
type Button struct {
	Label string
	Data  string
}

// Document is a file attachment for a reply.
type Document struct {
	Name string
	Data []byte
}

// Reply is one outbound message produced by the controller.
type Reply struct {
	Text      string
	Keyboard  [][]Button
	Edit      bool // replace the last keyboard message instead of sending a new one
	PhotoPath string
	Document  *Document
}

// Store is the slice of the record store the controller needs.
type Store interface {
	EnsureUser(ctx context.Context, id int64, username string) error
	CategoriesByType(ctx context.Context, t core.TransactionType) ([]core.Category, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	TransactionsByUser(ctx context.Context, userID int64) ([]storage.TransactionRow, error)
}

// Reporter produces the aggregate summary for one user.
type Reporter interface {
	Generate(ctx context.Context, userID int64) (*report.Summary, error)
}

// Controller is the conversation state machine. Scratch state is keyed by
// chat id; the transport delivers one event at a time, so no locking.
type Controller struct {
	store    Store
	reporter Reporter
	chats    map[int64]*scratch
	now      func() time.Time
}

func NewController(store Store, reporter Reporter) *Controller {
	return &Controller{
		store:    store,
		reporter: reporter,
		chats:    make(map[int64]*scratch),
		now:      time.Now,
	}
}

// StateOf returns the dialogue state of a chat. Chats without scratch
// state are idle.
func (c *Controller) StateOf(chatID int64) State {
	if s, ok := c.chats[chatID]; ok {
		return s.state
	}
	return StateIdle
}

const helpText = `Các lệnh có sẵn:
/start - Bắt đầu bot
/add - Thêm giao dịch mới
/report - Xem báo cáo tài chính
/budget - Quản lý ngân sách
/goals - Quản lý mục tiêu tiết kiệm
/export - Xuất dữ liệu
/help - Hiển thị trợ giúp`

// HandleCommand processes a slash command.
func (c *Controller) HandleCommand(ctx context.Context, chatID, userID int64, username, command string) ([]Reply, error) {
	switch command {
	case "start":
		if err := c.store.EnsureUser(ctx, userID, username); err != nil {
			return nil, fmt.Errorf("register user: %w", err)
		}
		c.chats[chatID] = &scratch{state: StateChooseAction}
		return []Reply{{
			Text: "Chào mừng đến với Bot Quản lý Tài chính!\nBạn muốn làm gì?",
			Keyboard: [][]Button{
				{{Label: "Thêm giao dịch", Data: "add_transaction"}},
				{{Label: "Xem báo cáo", Data: "view_report"}},
				{{Label: "Đặt ngân sách", Data: "set_budget"}},
				{{Label: "Mục tiêu tiết kiệm", Data: "saving_goal"}},
			},
		}}, nil

	case "help":
		return []Reply{{Text: helpText}}, nil

	case "add":
		return c.startAddTransaction(chatID), nil

	case "cancel":
		delete(c.chats, chatID)
		return []Reply{{Text: "Đã hủy thao tác."}}, nil

	case "report":
		delete(c.chats, chatID)
		return c.viewReport(ctx, userID)

	case "export":
		delete(c.chats, chatID)
		return c.exportTransactions(ctx, userID)

	default:
		return []Reply{{Text: "Lệnh không hợp lệ. Dùng /help để xem các lệnh có sẵn."}}, nil
	}
}

// HandleText processes free text. Only the amount step consumes text;
// everything else is ignored.
func (c *Controller) HandleText(ctx context.Context, chatID, userID int64, text string) ([]Reply, error) {
	s, ok := c.chats[chatID]
	if !ok || s.state != StateEnterAmount {
		return nil, nil
	}

	amount, err := core.ParseAmount(text)
	if err != nil {
		// Unbounded retry: the user stays here until valid input or /cancel.
		return []Reply{{Text: "Vui lòng nhập số tiền hợp lệ!"}}, nil
	}

	s.amount = amount
	s.state = StateChooseCurrency

	var row []Button
	for _, cur := range core.Currencies {
		row = append(row, Button{Label: cur, Data: cur})
	}
	return []Reply{{Text: "Chọn loại tiền tệ:", Keyboard: [][]Button{row}}}, nil
}

// HandleCallback processes an inline keyboard press carrying the opaque
// payload of the pressed button.
func (c *Controller) HandleCallback(ctx context.Context, chatID, userID int64, data string) ([]Reply, error) {
	s, ok := c.chats[chatID]
	if !ok {
		return nil, nil
	}

	switch s.state {
	case StateChooseAction:
		switch data {
		case "add_transaction":
			return c.startAddTransaction(chatID), nil
		case "view_report":
			delete(c.chats, chatID)
			return c.viewReport(ctx, userID)
		case "set_budget", "saving_goal":
			delete(c.chats, chatID)
			return []Reply{{Text: "Tính năng này chưa sẵn sàng."}}, nil
		}
		return nil, nil

	case StateChooseCategoryType:
		txType := core.TransactionType(data)
		if !txType.Valid() {
			return nil, nil
		}
		s.txType = txType
		s.state = StateEnterAmount

		cats, err := c.store.CategoriesByType(ctx, txType)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		if len(cats) == 0 {
			slog.WarnContext(ctx, "No categories for type", "transaction_type", string(txType))
		}
		var keyboard [][]Button
		for _, cat := range cats {
			keyboard = append(keyboard, []Button{{Label: cat.Name, Data: cat.Name}})
		}
		return []Reply{{Text: "Chọn danh mục:", Keyboard: keyboard, Edit: true}}, nil

	case StateChooseCurrency:
		if !core.KnownCurrency(data) {
			return nil, nil
		}
		// The category button only ever showed the name; its id is not in
		// scratch state and the row is stored without one.
		tx := core.Transaction{
			UserID:   userID,
			Date:     c.now(),
			Amount:   s.amount,
			Currency: data,
			Type:     s.txType,
		}
		if _, err := c.store.CreateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("save transaction: %w", err)
		}

		delete(c.chats, chatID)
		return []Reply{{
			Text: fmt.Sprintf("Đã thêm giao dịch: %s %s\nLoại: %s",
				tx.Amount.String(), tx.Currency, tx.Type),
			Edit: true,
		}}, nil
	}

	// Category presses land here while the chat waits for the amount
	// text; they carry no state and are ignored.
	return nil, nil
}

func (c *Controller) startAddTransaction(chatID int64) []Reply {
	c.chats[chatID] = &scratch{state: StateChooseCategoryType}
	return []Reply{{
		Text: "Bạn muốn thêm giao dịch gì?",
		Keyboard: [][]Button{{
			{Label: "Chi tiêu", Data: "expense"},
			{Label: "Thu nhập", Data: "income"},
		}},
	}}
}

func (c *Controller) viewReport(ctx context.Context, userID int64) ([]Reply, error) {
	summary, err := c.reporter.Generate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if summary == nil {
		return []Reply{{Text: "Chưa có dữ liệu giao dịch."}}, nil
	}

	text := fmt.Sprintf("Báo cáo tài chính (%s):\nTổng thu nhập: %s\nTổng chi tiêu: %s",
		core.ReferenceCurrency,
		summary.TotalIncome.String(),
		summary.TotalExpense.String())
	for key, amount := range summary.ByCategory {
		text += fmt.Sprintf("\n- %s / %s: %s", key.Type, key.Category, amount.String())
	}

	reply := Reply{Text: text}
	out := []Reply{reply}
	if summary.ChartPath != "" {
		out = append(out, Reply{PhotoPath: summary.ChartPath})
	}
	return out, nil
}

func (c *Controller) exportTransactions(ctx context.Context, userID int64) ([]Reply, error) {
	rows, err := c.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if len(rows) == 0 {
		return []Reply{{Text: "Chưa có dữ liệu giao dịch."}}, nil
	}

	var buf bytes.Buffer
	if err := report.ExportCSV(&buf, rows); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}

	return []Reply{{
		Document: &Document{Name: "transactions.csv", Data: buf.Bytes()},
	}}, nil
}
