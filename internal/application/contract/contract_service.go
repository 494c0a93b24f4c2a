package contract

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/finadmin/backend/internal/application/finance"
	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCatchUpPeriods bounds how many overdue periods one item bills in a single run
const maxCatchUpPeriods = 36

// ContractService manages recurring contracts and turns due items into receivables
type ContractService struct {
	contracts      contract.Repository
	txScope        appfinance.TransactionScope
	converter      appfinance.USDConverter
	publisher      shared.EventPublisher
	billingDueDays int
	now            func() time.Time
	logger         *zap.Logger
}

// ContractServiceOption configures a ContractService
type ContractServiceOption func(*ContractService)

// WithPublisher publishes contract and ledger events after commit
func WithPublisher(p shared.EventPublisher) ContractServiceOption {
	return func(s *ContractService) {
		s.publisher = p
	}
}

// WithBillingDueDays sets how many days after billing a receivable falls due
func WithBillingDueDays(days int) ContractServiceOption {
	return func(s *ContractService) {
		if days >= 0 {
			s.billingDueDays = days
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ContractServiceOption {
	return func(s *ContractService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) ContractServiceOption {
	return func(s *ContractService) {
		s.now = now
	}
}

// NewContractService creates a new ContractService
func NewContractService(
	contracts contract.Repository,
	txScope appfinance.TransactionScope,
	converter appfinance.USDConverter,
	opts ...ContractServiceOption,
) *ContractService {
	s := &ContractService{
		contracts:      contracts,
		txScope:        txScope,
		converter:      converter,
		billingDueDays: 30,
		now:            time.Now,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new ACTIVE contract
func (s *ContractService) Create(ctx context.Context, tenantID uuid.UUID, req CreateContractRequest) (*ContractResponse, error) {
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, shared.ErrInvalidCurrency
	}
	exists, err := s.contracts.ExistsByNumber(ctx, tenantID, req.ContractNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Contract with this number already exists")
	}

	c, err := contract.NewContract(tenantID, req.ContractNumber, req.CustomerID, req.CustomerName, currency, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	c.Remark = req.Remark
	for _, item := range req.Items {
		if err := addItem(c, item); err != nil {
			return nil, err
		}
	}

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}
	s.publish(ctx, c.GetDomainEvents()...)
	c.ClearDomainEvents()

	resp := ToContractResponse(c)
	return &resp, nil
}

func addItem(c *contract.Contract, req AddItemRequest) error {
	var first time.Time
	if req.FirstBillingDate != nil {
		first = *req.FirstBillingDate
	}
	_, err := c.AddItem(req.Description, req.Amount, contract.Frequency(req.Frequency), first)
	return err
}

// AddItem appends a billing line to an existing contract
func (s *ContractService) AddItem(ctx context.Context, tenantID, contractID uuid.UUID, req AddItemRequest) (*ContractResponse, error) {
	return s.mutate(ctx, tenantID, contractID, func(c *contract.Contract) error {
		return addItem(c, req)
	})
}

// Suspend pauses billing
func (s *ContractService) Suspend(ctx context.Context, tenantID, contractID uuid.UUID) (*ContractResponse, error) {
	return s.mutate(ctx, tenantID, contractID, (*contract.Contract).Suspend)
}

// Resume restarts billing
func (s *ContractService) Resume(ctx context.Context, tenantID, contractID uuid.UUID) (*ContractResponse, error) {
	return s.mutate(ctx, tenantID, contractID, (*contract.Contract).Resume)
}

// Terminate ends the contract
func (s *ContractService) Terminate(ctx context.Context, tenantID, contractID uuid.UUID) (*ContractResponse, error) {
	return s.mutate(ctx, tenantID, contractID, (*contract.Contract).Terminate)
}

func (s *ContractService) mutate(ctx context.Context, tenantID, contractID uuid.UUID, fn func(*contract.Contract) error) (*ContractResponse, error) {
	c, err := s.contracts.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.contracts.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}
	resp := ToContractResponse(c)
	return &resp, nil
}

// Get returns one contract with its items
func (s *ContractService) Get(ctx context.Context, tenantID, contractID uuid.UUID) (*ContractResponse, error) {
	c, err := s.contracts.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	resp := ToContractResponse(c)
	return &resp, nil
}

// List returns a page of contracts
func (s *ContractService) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]ContractResponse, int64, error) {
	f := contract.Filter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Search:   filter.Search,
		},
		CustomerID: filter.CustomerID,
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if filter.Status != "" {
		status := contract.Status(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown contract status")
		}
		f.Status = &status
	}

	list, total, err := s.contracts.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ContractResponse, len(list))
	for i := range list {
		out[i] = ToContractResponse(&list[i])
	}
	return out, total, nil
}

// AdvanceDue bills every due item of every active contract of the tenant
func (s *ContractService) AdvanceDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*AdvanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "contract", "advance_due",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
	)
	defer span.End()

	if asOf.IsZero() {
		asOf = s.now()
	}
	due, err := s.contracts.FindDue(ctx, tenantID, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to find due contracts: %w", err)
	}

	result := &AdvanceResult{Billed: make([]BilledItem, 0)}
	for i := range due {
		billed, err := s.advance(ctx, &due[i], asOf)
		result.Contracts++
		result.Billed = append(result.Billed, billed...)
		if err != nil {
			// keep billing other contracts; this one retries on the next run
			result.Failed++
			logger.WithLogger(ctx, s.logger).Warn("failed to advance contract",
				zap.String("contract_number", due[i].ContractNumber),
				zap.Error(err),
			)
		}
	}
	telemetry.SetAttributes(span, "contract.billed", len(result.Billed))
	return result, nil
}

// Advance bills the due items of a single contract
func (s *ContractService) Advance(ctx context.Context, tenantID, contractID uuid.UUID, asOf time.Time) (*AdvanceResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	c, err := s.contracts.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != contract.StatusActive {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot bill contract in %s status", c.Status))
	}
	billed, err := s.advance(ctx, c, asOf)
	if err != nil {
		return nil, err
	}
	return &AdvanceResult{Contracts: 1, Billed: billed}, nil
}

// advance bills each due item until its next billing date passes asOf.
// Every billing period is its own transaction.
func (s *ContractService) advance(ctx context.Context, c *contract.Contract, asOf time.Time) ([]BilledItem, error) {
	var billed []BilledItem
	for _, item := range c.DueItems(asOf) {
		itemID := item.ID
		for n := 0; n < maxCatchUpPeriods; n++ {
			b, more, err := s.billOnce(ctx, c.TenantID, c.ID, itemID, asOf)
			if err != nil {
				return billed, err
			}
			if b != nil {
				billed = append(billed, *b)
			}
			if !more {
				break
			}
		}
	}
	return billed, nil
}

// billOnce advances one item by one period and creates the matching receivable.
// more reports whether the item is still due afterwards.
func (s *ContractService) billOnce(ctx context.Context, tenantID, contractID, itemID uuid.UUID, asOf time.Time) (*BilledItem, bool, error) {
	c, err := s.contracts.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, false, err
	}
	item := findItem(c, itemID)
	if item == nil || !item.IsDue(asOf) || c.Status != contract.StatusActive {
		return nil, false, nil
	}

	amount, err := valueobject.NewMoney(item.Amount, c.Currency)
	if err != nil {
		return nil, false, err
	}
	conv, err := s.converter.ConvertToUSD(ctx, item.Amount, c.Currency)
	if err != nil {
		return nil, false, err
	}

	var (
		entry  *finance.LedgerEntry
		events []shared.DomainEvent
		result *BilledItem
	)
	err = s.txScope.Execute(ctx, func(repos appfinance.TransactionalRepositories) error {
		locked, err := repos.Contracts().FindByIDForTenant(ctx, tenantID, contractID)
		if err != nil {
			return err
		}
		if locked.Version != c.Version {
			return shared.ErrConcurrencyConflict
		}
		billedFor, err := locked.AdvanceItem(itemID, s.now())
		if err != nil {
			return err
		}

		number, err := repos.LedgerEntries().GenerateEntryNumber(ctx, tenantID, finance.EntryKindReceivable)
		if err != nil {
			return err
		}
		due := billedFor.AddDate(0, 0, s.billingDueDays)
		entry, err = finance.NewLedgerEntry(tenantID, finance.EntryKindReceivable, number,
			locked.CustomerID, locked.CustomerName, amount, conv.Stamp(), &due)
		if err != nil {
			return err
		}
		entry.SourceRef = fmt.Sprintf("contract:%s:%s:%s", locked.ContractNumber, itemID, billedFor.Format(time.DateOnly))
		entry.Remark = item.Description

		if err := repos.Contracts().SaveWithLock(ctx, locked); err != nil {
			return err
		}
		if err := repos.LedgerEntries().Save(ctx, entry); err != nil {
			return err
		}

		advanced := findItem(locked, itemID)
		result = &BilledItem{
			ContractID:      contractID,
			ItemID:          itemID,
			BilledFor:       billedFor,
			NextBillingDate: advanced.NextBillingDate,
			EntryID:         entry.ID,
			EntryNumber:     entry.EntryNumber,
			UsdEquivAmount:  entry.UsdEquivAmount,
		}
		events = append(locked.GetDomainEvents(), entry.GetDomainEvents()...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.publish(ctx, events...)
	logger.WithLogger(ctx, s.logger).Info("contract item billed",
		zap.String("entry_number", result.EntryNumber),
		zap.Time("billed_for", result.BilledFor),
		zap.Time("next_billing_date", result.NextBillingDate),
	)
	return result, !result.NextBillingDate.After(asOf), nil
}

func findItem(c *contract.Contract, id uuid.UUID) *contract.Item {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}

func (s *ContractService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to publish domain events", zap.Error(err))
	}
}
