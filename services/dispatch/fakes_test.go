package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	bookingRepo "homezy/database/repository/booking"
	catalogRepo "homezy/database/repository/catalog"
	offerRepo "homezy/database/repository/offer"
	partnerRepo "homezy/database/repository/partner"
	"homezy/models"

	"go.uber.org/zap"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// memBookings is an in-memory BookingRepository with the same conditional
// write semantics as the Mongo implementation.
type memBookings struct {
	byID      map[string]*models.Booking
	history   map[string]int // "partnerID|customerID" -> completed jobs
	getErr    error
	claimHook func(id string) // runs before ClaimNextBatch evaluates
}

func newMemBookings(bookings ...*models.Booking) *memBookings {
	m := &memBookings{
		byID:    map[string]*models.Booking{},
		history: map[string]int{},
	}
	for _, b := range bookings {
		copied := *b
		m.byID[b.ID] = &copied
	}
	return m
}

func (m *memBookings) Create(ctx context.Context, b *models.Booking) error {
	copied := *b
	m.byID[b.ID] = &copied
	return nil
}

func (m *memBookings) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.byID[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *memBookings) GetStatus(ctx context.Context, id string) (string, error) {
	b, ok := m.byID[id]
	if !ok {
		return "", bookingRepo.ErrBookingNotFound
	}
	return b.Status, nil
}

func (m *memBookings) ListByCustomer(ctx context.Context, customerID string, statuses []string) ([]models.Booking, error) {
	return m.list(func(b *models.Booking) bool { return b.CustomerID == customerID }, statuses), nil
}

func (m *memBookings) ListByPartner(ctx context.Context, partnerID string, statuses []string) ([]models.Booking, error) {
	return m.list(func(b *models.Booking) bool { return b.PartnerID == partnerID }, statuses), nil
}

func (m *memBookings) list(match func(*models.Booking) bool, statuses []string) []models.Booking {
	allowed := map[string]bool{}
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []models.Booking
	for _, b := range m.byID {
		if !match(b) {
			continue
		}
		if len(allowed) > 0 && !allowed[b.Status] {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memBookings) AssignPartner(ctx context.Context, id, partnerID string) (bool, error) {
	b, ok := m.byID[id]
	if !ok || b.Status != models.BookingStatusPending || b.PartnerID != "" {
		return false, nil
	}
	b.PartnerID = partnerID
	b.Status = models.BookingStatusConfirmed
	return true, nil
}

func (m *memBookings) ClaimNextBatch(ctx context.Context, id string, fromBatch int) (bool, error) {
	if m.claimHook != nil {
		m.claimHook(id)
	}
	b, ok := m.byID[id]
	if !ok || b.Status != models.BookingStatusPending || b.CurrentBatch != fromBatch {
		return false, nil
	}
	b.CurrentBatch = fromBatch + 1
	return true, nil
}

func (m *memBookings) MarkExhausted(ctx context.Context, id string) (bool, error) {
	b, ok := m.byID[id]
	if !ok || b.DispatchExhausted {
		return false, nil
	}
	b.DispatchExhausted = true
	return true, nil
}

func (m *memBookings) UpdateStatusOwned(ctx context.Context, id, partnerID, status string) (bool, error) {
	b, ok := m.byID[id]
	if !ok || b.PartnerID != partnerID {
		return false, nil
	}
	b.Status = status
	return true, nil
}

func (m *memBookings) CancelByCustomer(ctx context.Context, id, customerID string) (bool, error) {
	b, ok := m.byID[id]
	if !ok || b.CustomerID != customerID {
		return false, nil
	}
	if b.Status != models.BookingStatusPending && b.Status != models.BookingStatusConfirmed {
		return false, nil
	}
	b.Status = models.BookingStatusCancelled
	return true, nil
}

func (m *memBookings) CountCompletedWith(ctx context.Context, partnerID, customerID string) (int, error) {
	return m.history[partnerID+"|"+customerID], nil
}

// memLedger is an in-memory OfferLedger with the unique-triple constraint.
type memLedger struct {
	offers    []*models.Offer
	createErr map[string]error // partnerID -> forced CreateOffer error
	sweeps    int
}

func newMemLedger() *memLedger {
	return &memLedger{createErr: map[string]error{}}
}

func (m *memLedger) find(bookingID, partnerID string, batch int) *models.Offer {
	for _, o := range m.offers {
		if o.BookingID == bookingID && o.PartnerID == partnerID && o.BatchNumber == batch {
			return o
		}
	}
	return nil
}

func (m *memLedger) CreateOffer(ctx context.Context, offer *models.Offer) error {
	if err := m.createErr[offer.PartnerID]; err != nil {
		return err
	}
	if m.find(offer.BookingID, offer.PartnerID, offer.BatchNumber) != nil {
		return offerRepo.ErrDuplicateOffer
	}
	copied := *offer
	m.offers = append(m.offers, &copied)
	return nil
}

func (m *memLedger) MarkExpired(ctx context.Context, now time.Time) ([]models.ExpiredBatch, error) {
	m.sweeps++
	sweepID := fmt.Sprintf("sweep-%d", m.sweeps)
	grouped := map[string]*models.ExpiredBatch{}
	var order []string
	for _, o := range m.offers {
		// Only rows this call flips are counted; rows another sweep
		// already claimed stay theirs.
		if o.Status != models.OfferStatusPending || !o.ExpiresAt.Before(now) {
			continue
		}
		o.Status = models.OfferStatusExpired
		o.ExpiredSweep = sweepID
		entry, ok := grouped[o.BookingID]
		if !ok {
			entry = &models.ExpiredBatch{BookingID: o.BookingID}
			grouped[o.BookingID] = entry
			order = append(order, o.BookingID)
		}
		if o.BatchNumber > entry.BatchNumber {
			entry.BatchNumber = o.BatchNumber
		}
		entry.Offers++
	}
	var out []models.ExpiredBatch
	for _, id := range order {
		out = append(out, *grouped[id])
	}
	return out, nil
}

func (m *memLedger) AttachNotification(ctx context.Context, bookingID, partnerID string, batchNumber int, notificationID string) error {
	if o := m.find(bookingID, partnerID, batchNumber); o != nil {
		o.NotificationID = notificationID
	}
	return nil
}

func (m *memLedger) MarkAccepted(ctx context.Context, bookingID, partnerID string) error {
	for _, o := range m.offers {
		if o.BookingID == bookingID && o.PartnerID == partnerID && o.Status == models.OfferStatusPending {
			o.Status = models.OfferStatusAccepted
			return nil
		}
	}
	return nil
}

func (m *memLedger) MarkRejected(ctx context.Context, bookingID, partnerID string) (bool, error) {
	for _, o := range m.offers {
		if o.BookingID == bookingID && o.PartnerID == partnerID && o.Status == models.OfferStatusPending {
			o.Status = models.OfferStatusRejected
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) CurrentBatch(ctx context.Context, bookingID string) (int, error) {
	highest := 0
	for _, o := range m.offers {
		if o.BookingID == bookingID && o.BatchNumber > highest {
			highest = o.BatchNumber
		}
	}
	return highest, nil
}

func (m *memLedger) ListByBooking(ctx context.Context, bookingID string) ([]models.Offer, error) {
	var out []models.Offer
	for _, o := range m.offers {
		if o.BookingID == bookingID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memLedger) ListPendingForPartner(ctx context.Context, partnerID string, now time.Time) ([]models.Offer, error) {
	var out []models.Offer
	for _, o := range m.offers {
		if o.PartnerID == partnerID && o.Status == models.OfferStatusPending && o.ExpiresAt.After(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memLedger) BatchSummaries(ctx context.Context, bookingID string) ([]models.BatchSummary, error) {
	byBatch := map[int]*models.BatchSummary{}
	var order []int
	for _, o := range m.offers {
		if o.BookingID != bookingID {
			continue
		}
		summary, ok := byBatch[o.BatchNumber]
		if !ok {
			summary = &models.BatchSummary{
				BatchNumber: o.BatchNumber,
				Counts:      map[string]int{},
				SentAt:      o.CreatedAt,
			}
			byBatch[o.BatchNumber] = summary
			order = append(order, o.BatchNumber)
		}
		summary.Counts[o.Status]++
		if o.CreatedAt.Before(summary.SentAt) {
			summary.SentAt = o.CreatedAt
		}
	}
	sort.Ints(order)
	out := make([]models.BatchSummary, 0, len(order))
	for _, batch := range order {
		out = append(out, *byBatch[batch])
	}
	return out, nil
}

// statusCounts tallies a booking's offers by status, for assertions.
func (m *memLedger) statusCounts(bookingID string) map[string]int {
	counts := map[string]int{}
	for _, o := range m.offers {
		if o.BookingID == bookingID {
			counts[o.Status]++
		}
	}
	return counts
}

// memDirectory is an in-memory PartnerDirectory.
type memDirectory struct {
	partners []models.PartnerProfile
	listErr  error
}

func (m *memDirectory) GetByID(ctx context.Context, userID string) (*models.PartnerProfile, error) {
	for _, p := range m.partners {
		if p.UserID == userID {
			copied := p
			return &copied, nil
		}
	}
	return nil, partnerRepo.ErrPartnerNotFound
}

func (m *memDirectory) ListEligible(ctx context.Context, filters partnerRepo.EligibilityFilters) ([]models.PartnerProfile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.PartnerProfile
	for _, p := range m.partners {
		if filters.VerifiedOnly && p.VerificationStatus != models.VerificationVerified {
			continue
		}
		if filters.OnlineOnly && !p.IsOnline {
			continue
		}
		if filters.Category != "" && !contains(p.Services, filters.Category) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// memCatalog is an in-memory ServiceCatalog.
type memCatalog struct {
	services map[string]*models.Service
	getErr   error
}

func newMemCatalog(services ...*models.Service) *memCatalog {
	m := &memCatalog{services: map[string]*models.Service{}}
	for _, s := range services {
		m.services[s.ID] = s
	}
	return m
}

func (m *memCatalog) GetByID(ctx context.Context, id string) (*models.Service, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.services[id]
	if !ok {
		return nil, catalogRepo.ErrServiceNotFound
	}
	return s, nil
}

func (m *memCatalog) ListActive(ctx context.Context, category string) ([]models.Service, error) {
	var out []models.Service
	for _, s := range m.services {
		if !s.Active {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

// sentOffer records one SendJobOffer call.
type sentOffer struct {
	PartnerID string
	Batch     int
	Score     float64
}

// recordingSink captures every notification the engine emits.
type recordingSink struct {
	jobOffers      []sentOffer
	pendingNotices int
	delayedNotices int
	failFor        map[string]error // partnerID -> forced SendJobOffer error
	nextID         int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failFor: map[string]error{}}
}

func (s *recordingSink) SendJobOffer(ctx context.Context, partnerID string, booking *models.Booking, service *models.Service, batchNumber int, rankScore float64) (string, error) {
	if err := s.failFor[partnerID]; err != nil {
		return "", err
	}
	s.jobOffers = append(s.jobOffers, sentOffer{PartnerID: partnerID, Batch: batchNumber, Score: rankScore})
	s.nextID++
	return fmt.Sprintf("ntf-%d", s.nextID), nil
}

func (s *recordingSink) SendBookingPending(ctx context.Context, booking *models.Booking) error {
	s.pendingNotices++
	return nil
}

func (s *recordingSink) SendBookingDelayed(ctx context.Context, booking *models.Booking) error {
	s.delayedNotices++
	return nil
}

func (s *recordingSink) offeredPartners(batch int) []string {
	var out []string
	for _, o := range s.jobOffers {
		if o.Batch == batch {
			out = append(out, o.PartnerID)
		}
	}
	return out
}

// mapSettings is an in-memory SettingsSource.
type mapSettings map[string]int

func (m mapSettings) GetInt(ctx context.Context, key string, def int) int {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// testPartner builds a verified, online partner serving the given category.
func testPartner(id, category string, rating float64) models.PartnerProfile {
	return models.PartnerProfile{
		UserID:             id,
		FullName:           "Partner " + id,
		Rating:             rating,
		VerificationStatus: models.VerificationVerified,
		Services:           []string{category},
		IsOnline:           true,
	}
}

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:         id,
		ServiceID:  "svc-clean",
		CustomerID: "cust-1",
		Status:     models.BookingStatusPending,
	}
}

func testService() *models.Service {
	return &models.Service{
		ID:       "svc-clean",
		Name:     "Deep Cleaning",
		Category: "cleaning",
		Active:   true,
	}
}

// The fakes must track the repository contracts.
var (
	_ bookingRepo.BookingRepository = (*memBookings)(nil)
	_ offerRepo.OfferLedger         = (*memLedger)(nil)
	_ partnerRepo.PartnerDirectory  = (*memDirectory)(nil)
	_ catalogRepo.ServiceCatalog    = (*memCatalog)(nil)
)

// testEnv bundles a DefaultEngine with the fakes behind it.
type testEnv struct {
	engine    *DefaultEngine
	bookings  *memBookings
	ledger    *memLedger
	sink      *recordingSink
	clock     *fakeClock
	directory *memDirectory
	catalog   *memCatalog
}

// newTestEngine wires a DefaultEngine over the in-memory fakes with smart
// ranking and the given partner pool.
func newTestEngine(partners []models.PartnerProfile, settings mapSettings) *testEnv {
	env := &testEnv{
		bookings:  newMemBookings(),
		ledger:    newMemLedger(),
		sink:      newRecordingSink(),
		clock:     newFakeClock(),
		directory: &memDirectory{partners: partners},
		catalog:   newMemCatalog(testService()),
	}
	env.engine = &DefaultEngine{
		Bookings: env.bookings,
		Ledger:   env.ledger,
		Ranker: &Ranker{
			Catalog:  env.catalog,
			Strategy: &SmartStrategy{Directory: env.directory, Bookings: env.bookings},
		},
		Dispatcher: &BatchDispatcher{
			Ledger:   env.ledger,
			Bookings: env.bookings,
			Sink:     env.sink,
			Clock:    env.clock,
			Logger:   zap.NewNop(),
		},
		Sink:     env.sink,
		Settings: settings,
		Defaults: Defaults{BatchSize: 5, OfferTTLSecs: 30, MaxBatches: 3},
		Logger:   zap.NewNop(),
	}
	return env
}

// partnerPool builds n verified cleaning partners with strictly descending
// ratings, so the smart ranking preserves the p01, p02, ... order.
func partnerPool(n int) []models.PartnerProfile {
	out := make([]models.PartnerProfile, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, testPartner(fmt.Sprintf("p%02d", i+1), "cleaning", 5.0-float64(i)*0.3))
	}
	return out
}
