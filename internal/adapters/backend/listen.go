package backend

import (
	"context"
	"encoding/json"

	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

// PGListener drives one dedicated connection in LISTEN mode
// It holds its own connection rather than borrowing from the pool because a
// listening session cannot serve queries
type PGListener struct {
	url string
	log logger.Logger

	connect func(ctx context.Context, url string) (*pgx.Conn, error)
}

// NewPGListener builds a listener for the given Postgres URL
func NewPGListener(url string) *PGListener {
	return &PGListener{
		url:     url,
		log:     *logger.Named("feed"),
		connect: pgx.Connect,
	}
}

var _ Listener = (*PGListener)(nil)

// Listen implements Listener
// Malformed payloads are logged and skipped; a dropped connection surfaces
// as a transport error for the caller's reconnect policy
func (l *PGListener) Listen(ctx context.Context, onReady func(), onEvent func(ChangeEvent)) error {
	conn, err := l.connect(ctx, l.url)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeTransport, "feed connect")
	}
	defer func() { _ = conn.Close(context.WithoutCancel(ctx)) }()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeTransport, "feed subscribe")
	}
	if onReady != nil {
		onReady()
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return perr.Wrapf(err, perr.ErrorCodeTransport, "feed connection lost")
		}
		ev, err := decodeEvent([]byte(n.Payload))
		if err != nil {
			l.log.Warn().Err(err).Str("payload", n.Payload).Msg("skipping malformed feed payload")
			continue
		}
		onEvent(ev)
	}
}

func decodeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, perr.JSONErrf("decode change event: %v", err)
	}
	if ev.Table == "" || ev.EntityID == "" || ev.Op == "" {
		return ChangeEvent{}, perr.InvalidArgf("change event missing fields")
	}
	return ev, nil
}
