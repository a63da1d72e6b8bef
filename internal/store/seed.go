package store

import "agrichain/internal/domain"

// Seed loads the built-in demo catalog. Existing records are kept; seeding
// twice is a no-op for ids already present.
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range demoCatalog() {
		if _, ok := s.items[rec.ID]; ok {
			continue
		}
		r := rec
		s.items[r.ID] = &r
		s.order = append(s.order, r.ID)
	}
}

func demoCatalog() []domain.ProduceRecord {
	return []domain.ProduceRecord{
		{
			ID:           "demo-1",
			Name:         "Organic Tomatoes",
			Farmer:       "John Smith",
			Location:     "California, USA",
			HarvestDate:  "2024-01-15",
			Price:        2.50,
			Quantity:     100,
			Quality:      "Premium",
			Unit:         "kg",
			Status:       domain.StatusHarvested,
			ExternalHash: "0x1234...5678",
			CreatedAt:    "2024-01-15T10:00:00Z",
			History: []domain.HistoryEntry{
				{Action: domain.StatusHarvested, Timestamp: "2024-01-15T10:00:00Z", Location: "Farm"},
			},
		},
		{
			ID:           "demo-2",
			Name:         "Fresh Lettuce",
			Farmer:       "Maria Garcia",
			Location:     "Texas, USA",
			HarvestDate:  "2024-01-14",
			Price:        1.80,
			Quantity:     50,
			Quality:      "Standard",
			Unit:         "kg",
			Status:       domain.StatusInTransit,
			ExternalHash: "0x8765...4321",
			CreatedAt:    "2024-01-14T08:00:00Z",
			History: []domain.HistoryEntry{
				{Action: domain.StatusHarvested, Timestamp: "2024-01-14T08:00:00Z", Location: "Farm"},
				{Action: domain.StatusPackaged, Timestamp: "2024-01-15T12:00:00Z", Location: "Packaging Facility"},
				{Action: domain.StatusInTransit, Timestamp: "2024-01-16T09:00:00Z", Location: "Distribution Center"},
			},
		},
	}
}
