// Package journal is the append-only operation log. Every ledger mutation
// and payment settlement leaves a row here; nothing is ever updated or
// deleted.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"agrichain/internal/domain"
)

// Event types written by the ledger and the payment orchestrator.
const (
	TypeProduceRegistered  = "produce.registered"
	TypeProduceStatus      = "produce.status"
	TypePaymentCaptured    = "payment.captured"
	TypeSettlementMismatch = "payment.settlement_mismatch"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

func (w Writer) Append(ctx context.Context, evtType, entityKind, entityID, actorID string, payload Payload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

// Tail returns the most recent events, newest first.
func (w Writer) Tail(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ByEntity returns all events for one entity in append order.
func (w Writer) ByEntity(ctx context.Context, entityKind, entityID string) ([]domain.Event, error) {
	rows, err := w.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE entity_kind=? AND entity_id=? ORDER BY id ASC`, entityKind, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
