package store

import (
	"fmt"
	"time"
)

// The domain tables feed per-agent context assembly. Writes come from the
// agents' structured outputs; reads happen during pipeline step 3.

// InsertLead records a prospect.
func (s *Store) InsertLead(l *Lead) error {
	_, err := s.db.Exec(`INSERT INTO leads (owner_id, name, company, email, score, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.OwnerID, l.Name, l.Company, l.Email, l.Score, l.Status)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// TopLeads returns an owner's highest-scored leads.
func (s *Store) TopLeads(ownerID string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.Query(`SELECT id, owner_id, name, company, email, score, status, created_at
		FROM leads WHERE owner_id = ? ORDER BY score DESC, created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("top leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Company, &l.Email, &l.Score, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertInsight records a product insight.
func (s *Store) InsertInsight(i *ProductInsight) error {
	_, err := s.db.Exec(`INSERT INTO product_insights (owner_id, title, summary)
		VALUES (?, ?, ?)`, i.OwnerID, i.Title, i.Summary)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// RecentInsights returns an owner's latest product insights.
func (s *Store) RecentInsights(ownerID string, limit int) ([]ProductInsight, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, owner_id, title, summary, created_at
		FROM product_insights WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent insights: %w", err)
	}
	defer rows.Close()

	var out []ProductInsight
	for rows.Next() {
		var i ProductInsight
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Title, &i.Summary, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// InsertCampaign records a marketing campaign.
func (s *Store) InsertCampaign(c *Campaign) error {
	_, err := s.db.Exec(`INSERT INTO campaigns (owner_id, name, channel, budget, status)
		VALUES (?, ?, ?, ?, ?)`,
		c.OwnerID, c.Name, c.Channel, c.Budget, c.Status)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// RecentCampaigns returns an owner's latest campaigns.
func (s *Store) RecentCampaigns(ownerID string, limit int) ([]Campaign, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, owner_id, name, channel, budget, status, created_at
		FROM campaigns WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent campaigns: %w", err)
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Channel, &c.Budget, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertEmailEvent records outbound email activity.
func (s *Store) InsertEmailEvent(e *EmailEvent) error {
	_, err := s.db.Exec(`INSERT INTO email_events (owner_id, lead_email, event_type)
		VALUES (?, ?, ?)`, e.OwnerID, e.LeadEmail, e.EventType)
	if err != nil {
		return fmt.Errorf("insert email event: %w", err)
	}
	return nil
}

// RecentEmailEvents returns an owner's latest email activity.
func (s *Store) RecentEmailEvents(ownerID string, limit int) ([]EmailEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, owner_id, lead_email, event_type, created_at
		FROM email_events WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent email events: %w", err)
	}
	defer rows.Close()

	var out []EmailEvent
	for rows.Next() {
		var e EmailEvent
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.LeadEmail, &e.EventType, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertCalendarEvent records a meeting.
func (s *Store) InsertCalendarEvent(e *CalendarEvent) error {
	_, err := s.db.Exec(`INSERT INTO calendar_events (owner_id, title, start_time, end_time, attendees)
		VALUES (?, ?, ?, ?, ?)`,
		e.OwnerID, e.Title, e.StartTime, e.EndTime, e.Attendees)
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	return nil
}

// UpcomingCalendarEvents returns an owner's meetings starting at or after now.
func (s *Store) UpcomingCalendarEvents(ownerID string, now time.Time, limit int) ([]CalendarEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, owner_id, title, start_time, COALESCE(end_time, start_time), attendees, created_at
		FROM calendar_events WHERE owner_id = ? AND start_time >= ?
		ORDER BY start_time ASC LIMIT ?`, ownerID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("upcoming calendar events: %w", err)
	}
	defer rows.Close()

	var out []CalendarEvent
	for rows.Next() {
		var e CalendarEvent
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartTime, &e.EndTime, &e.Attendees, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
