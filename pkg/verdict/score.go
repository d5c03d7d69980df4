package verdict

import "fmt"

const (
	pointsDeviceClass = 10
	pointsOS          = 10
	pointsBrowser     = 5
	pointsIP          = 10
)

type bucket struct {
	below  float64
	points int
}

// Distance and typing closeness dominate the score; the equality signals only
// corroborate.
var (
	distanceBuckets = []bucket{{below: 1, points: 35}, {below: 20, points: 30}, {below: 60, points: 20}, {below: 200, points: 10}}
	typingBuckets   = []bucket{{below: 15, points: 30}, {below: 40, points: 20}, {below: 80, points: 10}}
)

func bucketPoints(buckets []bucket, value float64) int {
	for _, b := range buckets {
		if value < b.below {
			return b.points
		}
	}
	return 0
}

func award(match bool, points int) int {
	if match {
		return points
	}
	return 0
}

// Score sums the 0-100 trust score and returns its itemised breakdown.
func Score(s Signals) (int, []Contribution) {
	breakdown := []Contribution{
		{
			Signal: "distance",
			Points: bucketPoints(distanceBuckets, s.DistanceKm),
			Max:    distanceBuckets[0].points,
			Reason: fmt.Sprintf("%.2f km from the household", s.DistanceKm),
		},
		{
			Signal: "typing_speed",
			Points: bucketPoints(typingBuckets, float64(s.CPMDiff)),
			Max:    typingBuckets[0].points,
			Reason: fmt.Sprintf("typing speed differs by %d cpm", s.CPMDiff),
		},
		{Signal: "device_class", Points: award(s.Matches.DeviceClass, pointsDeviceClass), Max: pointsDeviceClass, Reason: matchReason("device class", s.Matches.DeviceClass)},
		{Signal: "os", Points: award(s.Matches.OS, pointsOS), Max: pointsOS, Reason: matchReason("operating system", s.Matches.OS)},
		{Signal: "browser", Points: award(s.Matches.Browser, pointsBrowser), Max: pointsBrowser, Reason: matchReason("browser", s.Matches.Browser)},
		{Signal: "ip", Points: award(s.Matches.IP, pointsIP), Max: pointsIP, Reason: matchReason("public ip", s.Matches.IP)},
	}

	total := 0
	for _, c := range breakdown {
		total += c.Points
	}

	return total, breakdown
}

func matchReason(what string, match bool) string {
	if match {
		return what + " matches"
	}
	return what + " differs"
}
