package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SendToWork dispatches every asset the owner holds on one work cycle.
// Rewards are rolled up front and paid out unchanged at collection, so a
// price move during the hour does not change what was promised.
func (s *Service) SendToWork(ctx context.Context, ownerID int64) (WorkBatch, error) {
	var out WorkBatch

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var pending int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM game.work_assignments WHERE owner_id = $1 AND NOT completed
	`, ownerID).Scan(&pending); err != nil {
		return out, err
	}
	if pending > 0 {
		return out, ErrAlreadyWorking
	}

	rows, err := tx.Query(ctx, `
		SELECT id, price FROM game.accounts WHERE owner_id = $1 FOR UPDATE
	`, ownerID)
	if err != nil {
		return out, err
	}
	type worker struct {
		id    int64
		price int64
	}
	var workers []worker
	for rows.Next() {
		var w worker
		if err := rows.Scan(&w.id, &w.price); err != nil {
			rows.Close()
			return out, err
		}
		workers = append(workers, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}
	if len(workers) == 0 {
		return out, ErrNoAssets
	}

	now := s.now()
	endsAt := now.Add(WorkDuration)
	var total int64
	for _, w := range workers {
		reward := workReward(w.price, 0.8+0.4*s.nextFloat())
		total += reward
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.work_assignments (owner_id, asset_id, expected_reward, started_at, ends_at)
			VALUES ($1, $2, $3, $4, $5)
		`, ownerID, w.id, reward, now, endsAt); err != nil {
			return out, err
		}
	}
	if err := commitOrConflict(ctx, tx); err != nil {
		return out, err
	}
	s.log.Info("work batch dispatched",
		"owner_id", ownerID, "assignments", len(workers), "expected_reward", total)
	return WorkBatch{Assignments: len(workers), ExpectedReward: total, EndsAt: endsAt}, nil
}

// CollectRewards pays out every finished assignment in one atomic sweep.
// Unfinished assignments stay queued for a later collect; collected ones are
// marked complete and never pay twice.
func (s *Service) CollectRewards(ctx context.Context, ownerID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, expected_reward, ends_at
		FROM game.work_assignments
		WHERE owner_id = $1 AND NOT completed
		FOR UPDATE
	`, ownerID)
	if err != nil {
		return 0, err
	}
	var batch []assignment
	for rows.Next() {
		var a assignment
		if err := rows.Scan(&a.id, &a.reward, &a.endsAt); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	ready, total := splitReady(batch, s.now())
	if len(ready) == 0 {
		return 0, ErrNothingReady
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.work_assignments SET completed = TRUE WHERE id = ANY($1)
	`, ready); err != nil {
		return 0, err
	}

	if err := creditTx(ctx, tx, ownerID, total); err != nil {
		return 0, err
	}
	if err := appendLedgerTx(ctx, tx, uuid.NewString(), nil, &ownerID, total, "work_reward", "collected work rewards"); err != nil {
		return 0, err
	}
	if err := commitOrConflict(ctx, tx); err != nil {
		return 0, err
	}
	s.log.Info("work rewards collected", "owner_id", ownerID, "assignments", len(ready), "amount", total)
	return total, nil
}

// WorkStatus summarizes the owner's queued assignments against the clock.
func (s *Service) WorkStatus(ctx context.Context, ownerID int64) (WorkStatus, error) {
	rows, err := s.db.Query(ctx, `
		SELECT expected_reward, ends_at
		FROM game.work_assignments
		WHERE owner_id = $1 AND NOT completed
	`, ownerID)
	if err != nil {
		return WorkStatus{}, err
	}
	defer rows.Close()

	var rewards []int64
	var deadlines []time.Time
	for rows.Next() {
		var reward int64
		var endsAt time.Time
		if err := rows.Scan(&reward, &endsAt); err != nil {
			return WorkStatus{}, err
		}
		rewards = append(rewards, reward)
		deadlines = append(deadlines, endsAt)
	}
	if err := rows.Err(); err != nil {
		return WorkStatus{}, err
	}
	return summarizeWork(rewards, deadlines, s.now()), nil
}

// assignment is one incomplete work row as loaded for collection.
type assignment struct {
	id     int64
	reward int64
	endsAt time.Time
}

// splitReady picks the assignments whose deadline has passed and sums their
// promised rewards. A deadline exactly at now counts as ready.
func splitReady(batch []assignment, now time.Time) ([]int64, int64) {
	var ids []int64
	var total int64
	for _, a := range batch {
		if !a.endsAt.After(now) {
			ids = append(ids, a.id)
			total += a.reward
		}
	}
	return ids, total
}

func summarizeWork(rewards []int64, deadlines []time.Time, now time.Time) WorkStatus {
	st := WorkStatus{Workers: len(rewards), Active: len(rewards) > 0}
	for i, endsAt := range deadlines {
		if endsAt.After(now) {
			st.Working++
		} else {
			st.Ready++
		}
		st.ExpectedReward += rewards[i]
	}
	return st
}
