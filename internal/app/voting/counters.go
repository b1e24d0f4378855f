package voting

import (
	"fmt"
	"time"
)

// HourlyWindow is how many trailing clock hours the series covers.
const HourlyWindow = 24

func CounterKeyHour(t time.Time) string {
	return fmt.Sprintf("hour:%s", t.UTC().Truncate(time.Hour).Format("2006010215"))
}
