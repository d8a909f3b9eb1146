package alert

import "time"

// Direction records the side of the threshold that last fired for a
// subscription. It is the latch preventing repeat notifications while
// the temperature hovers on one side.
type Direction string

const (
	DirectionNone  Direction = "none"
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Decision is the outcome of evaluating one reading against one
// subscription.
type Decision int

const (
	DecisionNone Decision = iota
	FireAbove
	FireBelow
)

// Subscription is a user's temperature threshold registration. One live
// record per email; re-registration supersedes and resets the latch.
// An empty City means the subscription applies to every tracked city.
type Subscription struct {
	Email         string    `json:"email"`
	City          string    `json:"city,omitempty"`
	ThresholdC    float64   `json:"thresholdC"`
	LastDirection Direction `json:"lastDirection"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Matches reports whether the subscription is interested in readings
// for the given city.
func (s Subscription) Matches(city string) bool {
	return s.City == "" || s.City == city
}

// Evaluate decides whether a reading should fire a notification.
// Edge-triggered, not level-triggered:
//
//   - temperature above the threshold fires only if the latch is not
//     already Above;
//   - temperature below the threshold fires only as a recovery notice,
//     i.e. when the latch is Above. A fresh subscription observing a
//     below-threshold temperature stays silent;
//   - a temperature exactly equal to the threshold is a dead zone and
//     never fires.
//
// The caller is responsible for latching the returned direction.
func Evaluate(sub Subscription, temperatureC float64) Decision {
	switch {
	case temperatureC > sub.ThresholdC && sub.LastDirection != DirectionAbove:
		return FireAbove
	case temperatureC < sub.ThresholdC && sub.LastDirection == DirectionAbove:
		return FireBelow
	default:
		return DecisionNone
	}
}

// Latched returns the direction the latch must take after a decision.
func Latched(d Decision, prev Direction) Direction {
	switch d {
	case FireAbove:
		return DirectionAbove
	case FireBelow:
		return DirectionBelow
	default:
		return prev
	}
}
