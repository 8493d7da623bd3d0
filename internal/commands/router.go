// Package commands routes chat messages to ledger commands or, failing
// that, to the transaction interpreter.
package commands

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gmsas95/ledgerbot/internal/bills"
	"github.com/gmsas95/ledgerbot/internal/dedup"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/metrics"
	"github.com/gmsas95/ledgerbot/internal/money"
	"github.com/gmsas95/ledgerbot/internal/parser"
	"github.com/gmsas95/ledgerbot/internal/security"
	"github.com/gmsas95/ledgerbot/internal/state"
	"github.com/gmsas95/ledgerbot/internal/taxonomy"
	"github.com/gmsas95/ledgerbot/internal/textnorm"
	"github.com/gmsas95/ledgerbot/internal/undo"
	"go.uber.org/zap"
)

// Message is one inbound chat message
type Message struct {
	// ID identifies the delivery for duplicate suppression; may be empty
	ID       string
	Channel  string
	UserID   string
	UserName string
	Text     string
	// Source is the platform name written to the ledger's Source column
	Source string
}

// FundShare is a fund's percentage of the monthly surplus
type FundShare struct {
	Name    string
	Percent int
}

// FundOptions configures fund commands
type FundOptions struct {
	// Default receives quick adds that name no fund
	Default         string
	Emergency       string
	EmergencyTarget int64
	Shares          []FundShare
}

// Options wires a Router. Store, Bills, Classifier and State are required.
type Options struct {
	Store         ledger.Store
	Bills         bills.Source
	Classifier    *taxonomy.Classifier
	State         state.Store
	Senders       *Resolver
	Funds         FundOptions
	Budgets       map[string]int64
	Picker        Picker
	DedupCapacity int
	Validator     *security.InputValidator
	Now           func() time.Time
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

type route struct {
	name   string
	match  func(text string) (string, bool)
	handle func(ctx context.Context, msg Message, args string) (string, error)
}

// Router dispatches messages through a fixed priority list of commands.
// Messages of one channel are handled one at a time.
type Router struct {
	store       ledger.Store
	bills       bills.Source
	classifier  *taxonomy.Classifier
	interpreter *parser.Interpreter
	undo        *undo.Manager
	lists       *state.Bucket[ListResult]
	proposals   *state.Bucket[FundProposal]
	events      *dedup.EventFilter
	incomeDup   *dedup.IncomeDetector
	senders     *Resolver
	funds       FundOptions
	budgets     map[string]int64
	picker      Picker
	validator   *security.InputValidator
	now         func() time.Time
	logger      *zap.Logger
	metrics     *metrics.Metrics

	locks  sync.Map
	routes []route
}

// NewRouter creates a router
func NewRouter(opts Options) *Router {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Picker == nil {
		opts.Picker = NoFlavor{}
	}
	if opts.Senders == nil {
		opts.Senders = NewResolver(nil, ledger.PersonJacob)
	}
	if opts.Validator == nil {
		opts.Validator = security.NewInputValidator()
	}
	if opts.Bills == nil {
		opts.Bills = bills.Static(nil)
	}
	if opts.Funds.Default == "" {
		opts.Funds.Default = "Emergency Fund"
	}
	if opts.Funds.Emergency == "" {
		opts.Funds.Emergency = "Emergency Fund"
	}

	store := opts.Store
	if opts.Metrics != nil {
		store = ledger.Observe(store, opts.Metrics.RecordStoreCall)
	}

	r := &Router{
		store:       store,
		bills:       opts.Bills,
		classifier:  opts.Classifier,
		interpreter: parser.NewInterpreter(opts.Classifier, opts.Now),
		undo:        undo.NewManager(opts.State, store, opts.Now, opts.Logger),
		lists:       state.NewBucket[ListResult](opts.State, "list", 0),
		proposals:   state.NewBucket[FundProposal](opts.State, "fundcalc", proposalTTL),
		events:      dedup.NewEventFilter(opts.DedupCapacity),
		incomeDup:   dedup.NewIncomeDetector(),
		senders:     opts.Senders,
		funds:       opts.Funds,
		budgets:     make(map[string]int64, len(opts.Budgets)),
		picker:      opts.Picker,
		validator:   opts.Validator,
		now:         opts.Now,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}

	// Budget keys may arrive lowercased from config
	for category, limit := range opts.Budgets {
		r.budgets[strings.ToLower(category)] = limit
	}

	r.routes = []route{
		{"status", withMonth(opts.Now, "status", "tình hình", "báo cáo", "check", "현황"), r.handleStatus},
		{"bills", exact("bills", "fixed", "fixed bills", "chi phí cố định", "고정비"), r.handleBills},
		{"fund_calc", exact("fund calc", "fund calculator", "tính quỹ", "저축 계산"), r.handleFundCalc},
		{"fund_apply", exact("fund apply", "apply fund", "áp dụng quỹ"), r.handleFundApply},
		{"debts", exact("debts", "debt", "loans", "list debt", "list debts", "nợ", "빚"), r.handleDebts},
		{"paid", targeted("paid"), r.handlePaid},
		{"list", listArgs("list", "xem", "danh sách", "목록"), r.handleList},
		{"last", lastN(), r.handleLast},
		{"delete", targeted("delete", "del", "xóa", "삭제"), r.handleDelete},
		{"edit", targeted("edit", "sửa", "수정"), r.handleEdit},
		{"undo", exact("undo", "hoàn tác", "취소"), r.handleUndo},
		{"help", exact("help", "trợ giúp", "?", "도움말"), r.handleHelp},
		{"fund_set", fundSet(), r.handleFundSet},
		{"fund_add", withAmount("fund", "save", "quỹ"), r.handleFundAdd},
	}
	return r
}

// Handle processes one message and always returns a reply; errors never
// escape. Free chat that is not a transaction yields a silent reply.
func (r *Router) Handle(ctx context.Context, msg Message) Reply {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordHandleTime(time.Since(start))
		}
	}()

	if r.events.Seen(msg.ID) {
		r.logger.Debug("Duplicate delivery dropped", zap.String("event_id", msg.ID))
		r.record(metrics.OutcomeDuplicate)
		return silent()
	}
	if err := r.validator.Validate(msg.Text); err != nil {
		r.logger.Warn("Message rejected",
			zap.String("channel", msg.Channel),
			zap.String("text", security.RedactSecrets(msg.Text)),
			zap.Error(err))
		r.record(metrics.OutcomeBlocked)
		return silent()
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		r.record(metrics.OutcomeIgnored)
		return silent()
	}

	mu := r.channelLock(msg.Channel)
	mu.Lock()
	defer mu.Unlock()

	folded := strings.Join(textnorm.Fields(text), " ")
	name := "transaction"
	var (
		out string
		err error
	)
	matched := false
	for _, rt := range r.routes {
		if args, ok := rt.match(folded); ok {
			name = rt.name
			out, err = rt.handle(ctx, msg, args)
			matched = true
			break
		}
	}
	if !matched {
		out, err = r.handleTransaction(ctx, msg, text)
	}

	if err != nil {
		reply, visible := errorReply(err)
		if !visible {
			r.record(metrics.OutcomeIgnored)
			return silent()
		}
		r.logger.Info("Command failed",
			zap.String("command", name),
			zap.String("channel", msg.Channel),
			zap.Error(err))
		r.recordCommand(name)
		r.record(metrics.OutcomeError)
		return Reply{Text: reply}
	}

	r.recordCommand(name)
	r.record(metrics.OutcomeReplied)
	return Reply{Text: out}
}

func (r *Router) channelLock(channel string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(channel, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (r *Router) record(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordMessage(outcome)
	}
}

func (r *Router) recordCommand(name string) {
	if r.metrics != nil {
		r.metrics.RecordCommand(name)
	}
}

func (r *Router) sender(msg Message) ledger.Person {
	return r.senders.Resolve(msg.Source, msg.UserID, msg.UserName)
}

// activeBills reads the bills for this request. A failing bill source only
// disables bill matching.
func (r *Router) activeBills(ctx context.Context) []bills.Bill {
	bs, err := r.bills.ActiveBills(ctx)
	if err != nil {
		r.logger.Warn("Failed to read fixed bills", zap.Error(err))
		return nil
	}
	return bs
}

// exact matches any of the phrases as the whole message
func exact(phrases ...string) func(string) (string, bool) {
	set := foldSet(phrases)
	return func(text string) (string, bool) {
		return "", set[text]
	}
}

// prefix matches a phrase alone or followed by arguments
func prefix(phrases ...string) func(string) (string, bool) {
	folded := foldList(phrases)
	return func(text string) (string, bool) {
		for _, p := range folded {
			if text == p {
				return "", true
			}
			if rest, ok := strings.CutPrefix(text, p+" "); ok {
				return strings.TrimSpace(rest), true
			}
		}
		return "", false
	}
}

// targeted is prefix for commands taking list positions. Arguments that do
// not start like a target fall through, so "paid back 500k" is a transaction.
func targeted(phrases ...string) func(string) (string, bool) {
	match := prefix(phrases...)
	return func(text string) (string, bool) {
		args, ok := match(text)
		if !ok {
			return "", false
		}
		if args == "" || startsWithDigit(args) || strings.HasPrefix(args, "last") {
			return args, true
		}
		return "", false
	}
}

// withMonth matches a phrase alone or followed by a single month token
func withMonth(now func() time.Time, phrases ...string) func(string) (string, bool) {
	match := prefix(phrases...)
	return func(text string) (string, bool) {
		args, ok := match(text)
		if !ok {
			return "", false
		}
		if args == "" {
			return "", true
		}
		if _, _, isMonth := parser.ParseMonthToken(args, now()); isMonth {
			return args, true
		}
		return "", false
	}
}

// listArgs is prefix for list filters. An amount-shaped argument means the
// phrase was a transaction ("xem phim 100k").
func listArgs(phrases ...string) func(string) (string, bool) {
	match := prefix(phrases...)
	return func(text string) (string, bool) {
		args, ok := match(text)
		if !ok {
			return "", false
		}
		for _, tok := range strings.Fields(args) {
			v, isAmount := money.ParseAmount(tok)
			if isAmount && (!isNumber(tok) || v > maxListSize) {
				return "", false
			}
		}
		return args, true
	}
}

// lastN matches "last" and "last <N>"
func lastN() func(string) (string, bool) {
	return func(text string) (string, bool) {
		if text == "last" {
			return "", true
		}
		rest, ok := strings.CutPrefix(text, "last ")
		if ok && isNumber(rest) {
			return rest, true
		}
		return "", false
	}
}

// withAmount matches "<phrase> <amount> [name]"
func withAmount(phrases ...string) func(string) (string, bool) {
	match := prefix(phrases...)
	return func(text string) (string, bool) {
		args, ok := match(text)
		if !ok || args == "" {
			return "", false
		}
		first := strings.Fields(args)[0]
		if _, isAmount := money.ParseAmount(first); !isAmount {
			return "", false
		}
		return args, true
	}
}

// fundSet matches "fund set <name> <amount>" and its Vietnamese form
func fundSet() func(string) (string, bool) {
	return prefix("fund set", "quỹ set", "đặt quỹ")
}

func foldList(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = textnorm.Fold(p)
	}
	return out
}

func foldSet(phrases []string) map[string]bool {
	set := make(map[string]bool, len(phrases))
	for _, p := range foldList(phrases) {
		set[p] = true
	}
	return set
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
