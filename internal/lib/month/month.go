// Package month считает границы календарных месяцев для помесячной аналитики.
package month

import (
	"time"
)

// Start возвращает полночь первого числа месяца, в который попадает t, в той же локации.
func Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Window возвращает полуинтервал [start, end) календарного месяца,
// отстоящего на back месяцев назад от месяца now (back=0 означает текущий месяц).
//
// Сдвиг считается от первого числа, поэтому 31 марта минус один месяц даёт февраль, а не 3 марта.
func Window(now time.Time, back int) (start, end time.Time) {
	start = Start(now).AddDate(0, -back, 0)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// Windows возвращает n последних календарных месяцев, от самого старого к текущему.
func Windows(now time.Time, n int) [][2]time.Time {
	res := make([][2]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		start, end := Window(now, i)
		res = append(res, [2]time.Time{start, end})
	}
	return res
}

// Label возвращает короткое английское название месяца: "Jan", "Feb", ...
func Label(t time.Time) string {
	return t.Format("Jan")
}
