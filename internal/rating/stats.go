package rating

import (
	"math"
	"sort"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

// MinRatingsForAverage is the smallest sample for which an average is published.
const MinRatingsForAverage = 5

const (
	recentRatingsLimit = 5
	insufficientNote   = "At least 5 ratings are required to show an average score"
)

// ComputeTeacherStats builds the report over every rating a teacher received.
// It has no side effects and does not depend on the order of details.
func ComputeTeacherStats(teacher domain.User, details []domain.RatingDetail) domain.TeacherStats {
	stats := domain.TeacherStats{
		TeacherID:     teacher.ID,
		TeacherName:   teacher.Name,
		TotalCount:    len(details),
		Distribution:  map[int]int{},
		RecentRatings: []domain.RecentRating{},
	}
	if len(details) == 0 {
		return stats
	}

	for score := domain.MinScore; score <= domain.MaxScore; score++ {
		stats.Distribution[score] = 0
	}

	sum := 0
	highest, lowest := details[0].Score, details[0].Score
	listings := make(map[string]struct{})
	for _, d := range details {
		sum += d.Score
		stats.Distribution[d.Score]++
		listings[d.ListingID] = struct{}{}
		if d.Score > highest {
			highest = d.Score
		}
		if d.Score < lowest {
			lowest = d.Score
		}
		if d.Score >= 4 {
			stats.RatingsAbove4++
		}
		if d.Score <= 2 {
			stats.RatingsBelow3++
		}
	}

	avg := roundToOneDecimal(float64(sum) / float64(len(details)))
	stats.AverageScore = &avg
	stats.HighestScore = &highest
	stats.LowestScore = &lowest
	stats.ListingsRated = len(listings)

	newest := make([]domain.RatingDetail, len(details))
	copy(newest, details)
	sort.SliceStable(newest, func(i, j int) bool {
		return newest[i].CreatedAt.After(newest[j].CreatedAt)
	})
	if len(newest) > recentRatingsLimit {
		newest = newest[:recentRatingsLimit]
	}
	for _, d := range newest {
		stats.RecentRatings = append(stats.RecentRatings, domain.RecentRating{
			ID:           d.ID,
			Score:        d.Score,
			LearnerName:  d.Learner.Name,
			ListingTitle: d.Listing.Title,
			CreatedAt:    d.CreatedAt,
		})
	}
	return stats
}

// publishedAverage applies the minimum-sample policy to a mean.
func publishedAverage(mean float64, count int) (*float64, string) {
	if count < MinRatingsForAverage {
		return nil, insufficientNote
	}
	avg := roundToOneDecimal(mean)
	return &avg, ""
}

func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10.0
}
