package youtube

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hoursLabel   = regexp.MustCompile(`(\d+)\s*hours?`)
	minutesLabel = regexp.MustCompile(`(\d+)\s*minutes?`)
	secondsLabel = regexp.MustCompile(`(\d+)\s*seconds?`)

	isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// ParseDuration converts a displayed duration to seconds. It accepts the
// clock form ("1:02:03", "2:05", "45") and the accessibility label form
// ("1 hour, 2 minutes, 3 seconds"). It never fails: text it does not
// recognize yields 0, malformed components count as 0, and a total that
// does not fit in an int yields 0.
func ParseDuration(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	if strings.Contains(text, ":") {
		return parseClock(text)
	}

	if n, ok := atoi(text); ok {
		return n
	}

	lower := strings.ToLower(text)
	var d durationSum
	d.add(labelValue(hoursLabel, lower), 3600)
	d.add(labelValue(minutesLabel, lower), 60)
	d.add(labelValue(secondsLabel, lower), 1)
	return d.seconds()
}

// durationSum accumulates weighted components and remembers overflow.
type durationSum struct {
	total    int
	overflow bool
}

func (d *durationSum) add(n, weight int) {
	if d.overflow || n == 0 {
		return
	}
	if n > (math.MaxInt-d.total)/weight {
		d.overflow = true
		return
	}
	d.total += n * weight
}

func (d *durationSum) seconds() int {
	if d.overflow {
		return 0
	}
	return d.total
}

// parseClock reads colon separated components right to left as seconds,
// minutes and hours. Anything beyond hours is ignored.
func parseClock(text string) int {
	parts := strings.Split(text, ":")
	weights := []int{1, 60, 3600}

	var d durationSum
	for i := 0; i < len(parts) && i < len(weights); i++ {
		n, _ := atoi(strings.TrimSpace(parts[len(parts)-1-i]))
		d.add(n, weights[i])
	}
	return d.seconds()
}

func labelValue(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := atoi(m[1])
	return n
}

// atoi accepts only non-negative decimal integers.
func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strings.HasPrefix(s, "+") {
		return 0, false
	}
	return n, true
}

// ParseISODuration converts an ISO-8601 duration as returned by the Data
// API ("PT1H2M3S", "P1DT5M") to seconds. Unparseable input yields 0.
func ParseISODuration(text string) int {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0
	}
	weights := []int{86400, 3600, 60, 1}
	var d durationSum
	for i, w := range weights {
		if n, ok := atoi(m[i+1]); ok {
			d.add(n, w)
		}
	}
	return d.seconds()
}
