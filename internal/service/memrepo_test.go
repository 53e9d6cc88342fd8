package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
)

var errInjected = errors.New("injected failure")

type memState struct {
	users         []model.User
	logins        []model.LoginRecord
	settings      *model.PlatformSettings
	investments   []model.Investment
	transactions  []model.Transaction
	fees          []model.DailyFee
	bonuses       []model.Bonus
	commissions   []model.Commission
	withdrawals   []model.Withdrawal
	distributions []model.ProfitDistribution
	winners       []model.LotteryWinner
}

func (s memState) clone() memState {
	c := memState{
		users:         append([]model.User(nil), s.users...),
		logins:        append([]model.LoginRecord(nil), s.logins...),
		investments:   append([]model.Investment(nil), s.investments...),
		transactions:  append([]model.Transaction(nil), s.transactions...),
		fees:          append([]model.DailyFee(nil), s.fees...),
		bonuses:       append([]model.Bonus(nil), s.bonuses...),
		commissions:   append([]model.Commission(nil), s.commissions...),
		withdrawals:   append([]model.Withdrawal(nil), s.withdrawals...),
		distributions: append([]model.ProfitDistribution(nil), s.distributions...),
		winners:       append([]model.LotteryWinner(nil), s.winners...),
	}
	if s.settings != nil {
		st := *s.settings
		c.settings = &st
	}
	return c
}

// memRepo хранит данные в памяти. WithinTx откатывает состояние к снимку при ошибке.
type memRepo struct {
	state  memState
	failOn map[string]error
	locks  []string
	txs    int
}

func newMemRepo() *memRepo {
	return &memRepo{failOn: map[string]error{}}
}

func (m *memRepo) fail(op string) error {
	return m.failOn[op]
}

func (m *memRepo) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	m.txs++
	snapshot := m.state.clone()
	if err := fn(m); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateUser(ctx context.Context, u *model.User) error {
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range m.state.users {
		if existing.Email == u.Email {
			return repository.ErrUserExists
		}
	}
	m.state.users = append(m.state.users, *u)
	return nil
}

func (m *memRepo) findUser(id uuid.UUID) int {
	for i := range m.state.users {
		if m.state.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *memRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	i := m.findUser(id)
	if i < 0 {
		return nil, repository.ErrUserNotFound
	}
	u := m.state.users[i]
	return &u, nil
}

func (m *memRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.state.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memRepo) LockUser(ctx context.Context, id uuid.UUID) error {
	if m.findUser(id) < 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (m *memRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	return append([]model.User(nil), m.state.users...), nil
}

func (m *memRepo) UpdateUserStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error {
	i := m.findUser(id)
	if i < 0 {
		return repository.ErrUserNotFound
	}
	m.state.users[i].Status = status
	return nil
}

func (m *memRepo) UpdateUserName(ctx context.Context, id uuid.UUID, name string) error {
	i := m.findUser(id)
	if i < 0 {
		return repository.ErrUserNotFound
	}
	m.state.users[i].Name = name
	return nil
}

func (m *memRepo) AddLoginRecord(ctx context.Context, rec model.LoginRecord) error {
	m.state.logins = append(m.state.logins, rec)
	return nil
}

func (m *memRepo) GetSettings(ctx context.Context) (*model.PlatformSettings, error) {
	if m.state.settings == nil {
		return nil, repository.ErrSettingsNotFound
	}
	st := *m.state.settings
	return &st, nil
}

func (m *memRepo) SaveSettings(ctx context.Context, s model.PlatformSettings) error {
	m.state.settings = &s
	return nil
}

func (m *memRepo) CreateInvestment(ctx context.Context, inv *model.Investment) error {
	m.state.investments = append(m.state.investments, *inv)
	return nil
}

func (m *memRepo) findInvestment(id uuid.UUID) int {
	for i := range m.state.investments {
		if m.state.investments[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *memRepo) GetInvestment(ctx context.Context, id uuid.UUID) (*model.Investment, error) {
	i := m.findInvestment(id)
	if i < 0 {
		return nil, repository.ErrInvestmentNotFound
	}
	inv := m.state.investments[i]
	return &inv, nil
}

func (m *memRepo) LockInvestment(ctx context.Context, id uuid.UUID) (*model.Investment, error) {
	return m.GetInvestment(ctx, id)
}

func (m *memRepo) UpdateInvestmentStatus(ctx context.Context, id uuid.UUID, status model.InvestmentStatus, reason string, at time.Time) error {
	if err := m.fail("UpdateInvestmentStatus"); err != nil {
		return err
	}
	i := m.findInvestment(id)
	if i < 0 {
		return repository.ErrInvestmentNotFound
	}
	m.state.investments[i].Status = status
	m.state.investments[i].RejectionReason = reason
	m.state.investments[i].UpdatedAt = at
	return nil
}

func (m *memRepo) ListInvestmentsByUser(ctx context.Context, userID uuid.UUID) ([]model.Investment, error) {
	var res []model.Investment
	for _, inv := range m.state.investments {
		if inv.UserID == userID {
			res = append(res, inv)
		}
	}
	return res, nil
}

func (m *memRepo) ListInvestmentsByStatus(ctx context.Context, status model.InvestmentStatus) ([]model.Investment, error) {
	var res []model.Investment
	for _, inv := range m.state.investments {
		if inv.Status == status {
			res = append(res, inv)
		}
	}
	return res, nil
}

func (m *memRepo) CountApprovedInvestments(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, inv := range m.state.investments {
		if inv.UserID == userID && (inv.Status == model.InvestmentStatusActive || inv.Status == model.InvestmentStatusCompleted) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) SumActiveNetInvestment(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, inv := range m.state.investments {
		if inv.UserID == userID && inv.Status == model.InvestmentStatusActive {
			sum = sum.Add(inv.NetAmountUSD)
		}
	}
	return sum, nil
}

func (m *memRepo) AddTransaction(ctx context.Context, t *model.Transaction) error {
	if err := m.fail("AddTransaction:" + string(t.Type)); err != nil {
		return err
	}
	m.state.transactions = append(m.state.transactions, *t)
	return nil
}

func (m *memRepo) SumTransactions(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range m.state.transactions {
		if t.UserID == userID {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *memRepo) ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error) {
	var res []model.Transaction
	for _, t := range m.state.transactions {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	return res, nil
}

func (m *memRepo) AddDailyFee(ctx context.Context, f *model.DailyFee) error {
	if err := m.fail("AddDailyFee"); err != nil {
		return err
	}
	m.state.fees = append(m.state.fees, *f)
	return nil
}

func (m *memRepo) ListUndistributedFees(ctx context.Context, feeType model.FeeType) ([]model.DailyFee, error) {
	var res []model.DailyFee
	for _, f := range m.state.fees {
		if f.Type == feeType && !f.Distributed {
			res = append(res, f)
		}
	}
	return res, nil
}

func (m *memRepo) MarkFeesDistributed(ctx context.Context, ids []uuid.UUID) error {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range m.state.fees {
		if set[m.state.fees[i].ID] {
			m.state.fees[i].Distributed = true
		}
	}
	return nil
}

func (m *memRepo) CountBonuses(ctx context.Context) (int64, error) {
	return int64(len(m.state.bonuses)), nil
}

func (m *memRepo) GetBonusByUser(ctx context.Context, userID uuid.UUID) (*model.Bonus, error) {
	for _, b := range m.state.bonuses {
		if b.UserID == userID {
			return &b, nil
		}
	}
	return nil, repository.ErrBonusNotFound
}

func (m *memRepo) AddBonus(ctx context.Context, b *model.Bonus) error {
	if _, err := m.GetBonusByUser(ctx, b.UserID); err == nil {
		return repository.ErrBonusExists
	}
	m.state.bonuses = append(m.state.bonuses, *b)
	return nil
}

func (m *memRepo) ListBonusesByStatus(ctx context.Context, status model.BonusStatus) ([]model.Bonus, error) {
	var res []model.Bonus
	for _, b := range m.state.bonuses {
		if b.Status == status {
			res = append(res, b)
		}
	}
	return res, nil
}

func (m *memRepo) UnlockBonus(ctx context.Context, id uuid.UUID, at time.Time) error {
	for i := range m.state.bonuses {
		if m.state.bonuses[i].ID == id {
			m.state.bonuses[i].Status = model.BonusStatusUnlocked
			m.state.bonuses[i].UnlockedAt = &at
			return nil
		}
	}
	return repository.ErrBonusNotFound
}

func (m *memRepo) AddCommission(ctx context.Context, c *model.Commission) error {
	if err := m.fail("AddCommission"); err != nil {
		return err
	}
	m.state.commissions = append(m.state.commissions, *c)
	return nil
}

func (m *memRepo) ListCommissionsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]model.Commission, error) {
	var res []model.Commission
	for _, c := range m.state.commissions {
		if c.ReferrerID == referrerID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (m *memRepo) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	m.state.withdrawals = append(m.state.withdrawals, *w)
	return nil
}

func (m *memRepo) findWithdrawal(id uuid.UUID) int {
	for i := range m.state.withdrawals {
		if m.state.withdrawals[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *memRepo) LockWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	i := m.findWithdrawal(id)
	if i < 0 {
		return nil, repository.ErrWithdrawalNotFound
	}
	w := m.state.withdrawals[i]
	return &w, nil
}

func (m *memRepo) HasPendingWithdrawal(ctx context.Context, userID uuid.UUID) (bool, error) {
	for _, w := range m.state.withdrawals {
		if w.UserID == userID && w.Status == model.WithdrawalStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, status model.WithdrawalStatus, reason string, at time.Time) error {
	i := m.findWithdrawal(id)
	if i < 0 {
		return repository.ErrWithdrawalNotFound
	}
	m.state.withdrawals[i].Status = status
	m.state.withdrawals[i].RejectionReason = reason
	m.state.withdrawals[i].UpdatedAt = at
	return nil
}

func (m *memRepo) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	var res []model.Withdrawal
	for _, w := range m.state.withdrawals {
		if w.UserID == userID {
			res = append(res, w)
		}
	}
	return res, nil
}

func (m *memRepo) ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	var res []model.Withdrawal
	for _, w := range m.state.withdrawals {
		if w.Status == status {
			res = append(res, w)
		}
	}
	return res, nil
}

func (m *memRepo) AddProfitDistribution(ctx context.Context, d *model.ProfitDistribution) error {
	m.state.distributions = append(m.state.distributions, *d)
	return nil
}

func (m *memRepo) AddLotteryWinner(ctx context.Context, w *model.LotteryWinner) error {
	m.state.winners = append(m.state.winners, *w)
	return nil
}

func (m *memRepo) ListLotteryWinners(ctx context.Context, limit int) ([]model.LotteryWinner, error) {
	res := append([]model.LotteryWinner(nil), m.state.winners...)
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memRepo) AcquireJobLock(ctx context.Context, job string) error {
	m.locks = append(m.locks, job)
	return nil
}

func (m *memRepo) GetPlatformStats(ctx context.Context) (*model.PlatformStats, error) {
	st := &model.PlatformStats{
		Users:                 int64(len(m.state.users)),
		UndistributedFees:     map[model.FeeType]decimal.Decimal{},
		ActiveInvestmentUSD:   decimal.Zero,
		TotalLedgerBalanceUSD: decimal.Zero,
	}
	for _, inv := range m.state.investments {
		switch inv.Status {
		case model.InvestmentStatusActive:
			st.ActiveInvestmentUSD = st.ActiveInvestmentUSD.Add(inv.NetAmountUSD)
		case model.InvestmentStatusPending:
			st.PendingInvestments++
		}
	}
	for _, w := range m.state.withdrawals {
		if w.Status == model.WithdrawalStatusPending {
			st.PendingWithdrawals++
		}
	}
	for _, f := range m.state.fees {
		if !f.Distributed {
			st.UndistributedFees[f.Type] = st.UndistributedFees[f.Type].Add(f.Amount)
		}
	}
	for _, b := range m.state.bonuses {
		if b.Status == model.BonusStatusLocked {
			st.LockedBonuses++
		}
	}
	for _, t := range m.state.transactions {
		st.TotalLedgerBalanceUSD = st.TotalLedgerBalanceUSD.Add(t.Amount)
	}
	return st, nil
}

func (m *memRepo) ClearTestData(ctx context.Context, keepUserID uuid.UUID) error {
	keep := m.findUser(keepUserID)
	next := memState{settings: m.state.settings}
	if keep >= 0 {
		u := m.state.users[keep]
		u.ReferredBy = nil
		next.users = []model.User{u}
		for _, l := range m.state.logins {
			if l.UserID == keepUserID {
				next.logins = append(next.logins, l)
			}
		}
	}
	m.state = next
	return nil
}

var _ Repository = (*memRepo)(nil)

type fixedPrices map[model.Fund]decimal.Decimal

func (p fixedPrices) USDPrice(ctx context.Context, fund model.Fund) (decimal.Decimal, error) {
	price, ok := p[fund]
	if !ok {
		return decimal.Zero, errors.New("no price")
	}
	return price, nil
}

type recordingPublisher struct {
	sent []model.Notification
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, n model.Notification) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []string {
	res := make([]string, 0, len(p.sent))
	for _, n := range p.sent {
		res = append(res, n.Kind)
	}
	return res
}
