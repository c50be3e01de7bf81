package rating

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

func detailsFor(scores []int, listings []string) []domain.RatingDetail {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	details := make([]domain.RatingDetail, 0, len(scores))
	for i, score := range scores {
		listing := listings[i%len(listings)]
		details = append(details, domain.RatingDetail{
			Rating: domain.Rating{
				ID:        string(rune('a' + i)),
				ListingID: listing,
				Score:     score,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			},
			Learner: domain.User{Name: "learner-" + string(rune('a'+i))},
			Listing: domain.Listing{ID: listing, Title: "title-" + listing},
		})
	}
	return details
}

func ptr[T any](v T) *T { return &v }

func TestComputeTeacherStats(t *testing.T) {
	teacher := domain.User{ID: "t", Name: "Tess", Role: domain.RoleTeacher}
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		details []domain.RatingDetail
		want    domain.TeacherStats
	}{
		{
			name:    "no ratings",
			details: nil,
			want: domain.TeacherStats{
				TeacherID:     "t",
				TeacherName:   "Tess",
				Distribution:  map[int]int{},
				RecentRatings: []domain.RecentRating{},
			},
		},
		{
			name:    "five ratings one listing",
			details: detailsFor([]int{5, 5, 4, 3, 5}, []string{"x"}),
			want: domain.TeacherStats{
				TeacherID:     "t",
				TeacherName:   "Tess",
				AverageScore:  ptr(4.4),
				TotalCount:    5,
				Distribution:  map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 3},
				ListingsRated: 1,
				RecentRatings: []domain.RecentRating{
					{ID: "e", Score: 5, LearnerName: "learner-e", ListingTitle: "title-x", CreatedAt: base.Add(4 * time.Hour)},
					{ID: "d", Score: 3, LearnerName: "learner-d", ListingTitle: "title-x", CreatedAt: base.Add(3 * time.Hour)},
					{ID: "c", Score: 4, LearnerName: "learner-c", ListingTitle: "title-x", CreatedAt: base.Add(2 * time.Hour)},
					{ID: "b", Score: 5, LearnerName: "learner-b", ListingTitle: "title-x", CreatedAt: base.Add(1 * time.Hour)},
					{ID: "a", Score: 5, LearnerName: "learner-a", ListingTitle: "title-x", CreatedAt: base},
				},
				HighestScore:  ptr(5),
				LowestScore:   ptr(3),
				RatingsAbove4: 4,
				RatingsBelow3: 0,
			},
		},
		{
			name:    "low scores across listings",
			details: detailsFor([]int{1, 2, 2}, []string{"x", "y"}),
			want: domain.TeacherStats{
				TeacherID:     "t",
				TeacherName:   "Tess",
				AverageScore:  ptr(1.7),
				TotalCount:    3,
				Distribution:  map[int]int{1: 1, 2: 2, 3: 0, 4: 0, 5: 0},
				ListingsRated: 2,
				RecentRatings: []domain.RecentRating{
					{ID: "c", Score: 2, LearnerName: "learner-c", ListingTitle: "title-x", CreatedAt: base.Add(2 * time.Hour)},
					{ID: "b", Score: 2, LearnerName: "learner-b", ListingTitle: "title-y", CreatedAt: base.Add(1 * time.Hour)},
					{ID: "a", Score: 1, LearnerName: "learner-a", ListingTitle: "title-x", CreatedAt: base},
				},
				HighestScore:  ptr(2),
				LowestScore:   ptr(1),
				RatingsAbove4: 0,
				RatingsBelow3: 3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTeacherStats(teacher, tt.details)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ComputeTeacherStats() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeTeacherStatsRecentLimit(t *testing.T) {
	details := detailsFor([]int{1, 2, 3, 4, 5, 1, 2}, []string{"x"})
	// Oldest first on input; the report must still start with the newest.
	got := ComputeTeacherStats(domain.User{ID: "t"}, details)
	if len(got.RecentRatings) != recentRatingsLimit {
		t.Fatalf("recent ratings = %d, want %d", len(got.RecentRatings), recentRatingsLimit)
	}
	if got.RecentRatings[0].ID != "g" {
		t.Fatalf("first recent rating = %s, want g", got.RecentRatings[0].ID)
	}
}

func TestPublishedAverage(t *testing.T) {
	if avg, note := publishedAverage(4.25, MinRatingsForAverage-1); avg != nil || note == "" {
		t.Fatalf("below threshold: avg=%v note=%q", avg, note)
	}
	avg, note := publishedAverage(4.25, MinRatingsForAverage)
	if avg == nil || *avg != 4.3 || note != "" {
		t.Fatalf("at threshold: avg=%v note=%q", avg, note)
	}
}

func FuzzComputeTeacherStats(f *testing.F) {
	f.Add([]byte{5, 5, 4, 3, 5})
	f.Add([]byte{})
	f.Add([]byte{1, 1, 1, 1, 1, 2, 3})

	f.Fuzz(func(t *testing.T, raw []byte) {
		scores := make([]int, len(raw))
		for i, b := range raw {
			scores[i] = int(b)%domain.MaxScore + domain.MinScore
		}
		var details []domain.RatingDetail
		if len(scores) > 0 {
			details = detailsFor(scores, []string{"x", "y", "z"})
		}
		stats := ComputeTeacherStats(domain.User{ID: "t"}, details)

		if stats.TotalCount != len(scores) {
			t.Fatalf("total = %d, want %d", stats.TotalCount, len(scores))
		}
		if len(scores) == 0 {
			if stats.AverageScore != nil || len(stats.Distribution) != 0 {
				t.Fatalf("empty report carries data: %+v", stats)
			}
			return
		}
		sum := 0
		for _, n := range stats.Distribution {
			sum += n
		}
		if sum != len(scores) {
			t.Fatalf("distribution sums to %d, want %d", sum, len(scores))
		}
		if *stats.AverageScore < float64(*stats.LowestScore) || *stats.AverageScore > float64(*stats.HighestScore) {
			t.Fatalf("average %v outside [%d,%d]", *stats.AverageScore, *stats.LowestScore, *stats.HighestScore)
		}
		if stats.RatingsAbove4+stats.RatingsBelow3 > stats.TotalCount {
			t.Fatalf("bucket counts exceed total")
		}
		if len(stats.RecentRatings) > recentRatingsLimit {
			t.Fatalf("too many recent ratings: %d", len(stats.RecentRatings))
		}
	})
}
