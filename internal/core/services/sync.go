package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nfetools/dfesync/internal/connectors/sefaz"
	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
	"github.com/nfetools/dfesync/internal/logger"
)

// DefaultCooldown spaces independent sync sessions for one
// (CNPJ, environment) pair. The provider rejects over-frequent
// queries, so the cooldown applies after every session, successful
// or not.
const DefaultCooldown = time.Hour

// DefaultMaxPages caps distribution queries within one session.
const DefaultMaxPages = 20

// StopReason describes why a sync session ended.
type StopReason string

const (
	// StopDeferred: the rate gate was still closed; zero queries ran.
	StopDeferred StopReason = "deferred"

	// StopCaughtUp: the cursor reached the provider's maximum.
	StopCaughtUp StopReason = "caught-up"

	// StopNoNewData: the provider reported nothing new.
	StopNoNewData StopReason = "no-new-data"

	// StopPageCap: the per-session query cap was reached.
	StopPageCap StopReason = "page-cap"

	// StopBlocked: the provider flagged service misuse (cStat 656).
	StopBlocked StopReason = "blocked"

	// StopUnexpectedStatus: an unrecognised provider status code.
	StopUnexpectedStatus StopReason = "unexpected-status"
)

// Session describes one sync run.
type Session struct {
	// CNPJ is the subscriber identifier; non-digits are stripped.
	CNPJ string

	// UF is the author jurisdiction (e.g. "SP").
	UF string

	// Environment selects production or homologation.
	Environment domain.Environment

	// Endpoint overrides the environment's default URL when set.
	// Tests point this at a local server.
	Endpoint string

	// MaxPages caps queries this session; 0 means DefaultMaxPages.
	MaxPages int
}

// Result summarises a finished (or deferred) session.
type Result struct {
	// SessionID tags every log line of this run.
	SessionID string

	// Processed counts document containers seen.
	Processed int

	// Placed counts documents landed in the archive.
	Placed int

	// Reason is why the session stopped. Empty when the session was
	// aborted by a transport or parse error.
	Reason StopReason

	// Cursor is the final cursor, including the next allowed time.
	Cursor domain.Cursor

	// Wait is the remaining gate duration for StopDeferred.
	Wait time.Duration

	// Status and Message carry the provider code and text for
	// StopBlocked and StopUnexpectedStatus.
	Status  int
	Message string
}

// SyncService drives the query→classify→extract→place cycle.
type SyncService struct {
	cursors   driven.CursorStore
	transport driven.Transport
	archive   driven.Archive

	pageDelay time.Duration
	cooldown  time.Duration
	now       func() time.Time
}

// NewSyncService wires the sync loop to its driven ports.
// Zero pageDelay and cooldown select the protocol defaults.
func NewSyncService(
	cursors driven.CursorStore,
	transport driven.Transport,
	archive driven.Archive,
	pageDelay, cooldown time.Duration,
) *SyncService {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &SyncService{
		cursors:   cursors,
		transport: transport,
		archive:   archive,
		pageDelay: pageDelay,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Run executes one sync session.
//
// The cursor is persisted once, at session end, on every stop path
// except a deferred session: partial pages already placed are covered
// by idempotent placement if the process dies before the save. The
// next allowed time always moves forward on a stop, even an abnormal
// one, so a failing provider is not hammered.
func (s *SyncService) Run(ctx context.Context, session Session) (*Result, error) {
	cnpj := domain.NormalizeSubscriber(session.CNPJ)
	if cnpj == "" {
		return nil, fmt.Errorf("%w: CNPJ carries no digits", domain.ErrUsage)
	}

	cursor, err := s.cursors.Load(ctx, cnpj, session.Environment)
	if err != nil {
		return nil, fmt.Errorf("loading cursor: %w", err)
	}

	res := &Result{
		SessionID: uuid.New().String(),
		Cursor:    cursor,
	}

	if now := s.now(); now.Before(cursor.NextAllowed) {
		res.Reason = StopDeferred
		res.Wait = cursor.NextAllowed.Sub(now)
		logger.Info("[%s] rate gate closed for %s/%s; next query allowed in %s",
			res.SessionID, cnpj, session.Environment, res.Wait.Round(time.Second))
		return res, nil
	}

	endpoint := session.Endpoint
	if endpoint == "" {
		endpoint = sefaz.Endpoint(session.Environment)
	}
	maxPages := session.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	limiter := sefaz.NewPageLimiter(s.pageDelay)

	var runErr error
pages:
	for page := 0; page < maxPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			runErr = fmt.Errorf("%w: %v", domain.ErrTransport, err)
			break
		}

		envelope, err := sefaz.BuildEnvelope(cnpj, session.UF, session.Environment, res.Cursor.LastNSU)
		if err != nil {
			runErr = err
			break
		}

		logger.Info("[%s] page %d: querying at NSU %s", res.SessionID, page+1, res.Cursor.LastNSU)

		_, body, err := s.transport.Post(ctx, endpoint, envelope)
		if err != nil {
			runErr = err
			break
		}

		resp, err := sefaz.ClassifyResponse(body)
		if err != nil {
			runErr = err
			break
		}

		logger.Debug("[%s] cStat=%d ultNSU=%s maxNSU=%s docs=%d",
			res.SessionID, resp.Status, resp.LastNSU, resp.MaxNSU, len(resp.Docs))

		switch resp.Status {
		case sefaz.StatusDocsFound:
			for _, dz := range resp.Docs {
				res.Processed++
				s.placeContainer(dz, cnpj, res)
			}
			if resp.LastNSU != "" {
				res.Cursor.LastNSU = domain.PadNSU(resp.LastNSU)
			}
			if resp.LastNSU != "" && resp.LastNSU == resp.MaxNSU {
				res.Reason = StopCaughtUp
				break pages
			}

		case sefaz.StatusNoDocs:
			res.Reason = StopNoNewData
			break pages

		case sefaz.StatusMisuse:
			res.Reason = StopBlocked
			res.Status = resp.Status
			res.Message = resp.Reason
			runErr = fmt.Errorf("%w: cStat=%d %s", domain.ErrServiceBlocked, resp.Status, resp.Reason)
			break pages

		default:
			res.Reason = StopUnexpectedStatus
			res.Status = resp.Status
			res.Message = resp.Reason
			logger.Warn("[%s] unexpected cStat=%d (%s) at NSU %s",
				res.SessionID, resp.Status, resp.Reason, res.Cursor.LastNSU)
			runErr = fmt.Errorf("%w: cStat=%d %s", domain.ErrUnexpectedStatus, resp.Status, resp.Reason)
			break pages
		}
	}

	if runErr == nil && res.Reason == "" {
		res.Reason = StopPageCap
		logger.Info("[%s] page cap reached at NSU %s", res.SessionID, res.Cursor.LastNSU)
	}

	res.Cursor.NextAllowed = s.now().Add(s.cooldown)
	if saveErr := s.cursors.Save(ctx, cnpj, session.Environment, res.Cursor); saveErr != nil {
		if runErr != nil {
			logger.Error("[%s] persisting cursor after failed session: %v", res.SessionID, saveErr)
			return res, runErr
		}
		return res, fmt.Errorf("saving cursor: %w", saveErr)
	}

	if runErr != nil {
		return res, runErr
	}

	logger.Info("[%s] session done: reason=%s processed=%d placed=%d cursor=%s",
		res.SessionID, res.Reason, res.Processed, res.Placed, res.Cursor.LastNSU)
	return res, nil
}

// placeContainer runs one container through decode→identify→place.
// Failures are per-document: logged, skipped, never escalated.
func (s *SyncService) placeContainer(dz sefaz.DocZip, cnpj string, res *Result) {
	raw, err := sefaz.DecodeDocZip(dz.Payload)
	if err != nil {
		logger.Warn("[%s] skipping NSU %s (%s): %v", res.SessionID, dz.NSU, dz.Schema, err)
		return
	}

	doc, err := sefaz.Identify(raw)
	if err != nil {
		logger.Warn("[%s] skipping NSU %s (%s): %v", res.SessionID, dz.NSU, dz.Schema, err)
		return
	}

	if doc.Kind != domain.KindInvoice {
		logger.Debug("[%s] discarding %s document NSU %s", res.SessionID, doc.Kind, dz.NSU)
		return
	}

	placement, err := s.archive.Place(doc, cnpj)
	if err != nil {
		logger.Warn("[%s] placing NSU %s: %v", res.SessionID, dz.NSU, err)
		return
	}

	res.Placed++
	if placement.CollisionResolved {
		logger.Debug("[%s] collision resolved for NSU %s: %s", res.SessionID, dz.NSU, placement.FileName)
	}
	logger.Info("[%s] placed %s", res.SessionID, placement.Path())
}
