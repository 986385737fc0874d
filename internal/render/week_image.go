package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/formatting"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Константы размеров и отступов
const (
	imageWidth        = 1400
	imageHeight       = 900
	headerHeight      = 100
	leftLabelsWidth   = 80
	legendWidth       = 140
	dayPaddingX       = 8
	minLessonHeight   = 8.0
	lessonRadius      = 6.0
	shadowOffset      = 3.0
	totalDaysInWeek   = 7
	hourPaddingTop    = 1
	hourPaddingBottom = 1
	defaultMinHour    = 8
	defaultMaxHour    = 20
	maxLabelLen       = 20
)

const (
	titleFontSize      = 25.0
	dayFontSize        = 22.0
	hourLabelFontSize  = 16.0
	lessonFontSize     = 15.0
	legendItemFontSize = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	pendingColor   = color.RGBA{255, 214, 102, 230}
	confirmedColor = color.RGBA{255, 182, 193, 255}
	completedColor = color.RGBA{133, 193, 85, 220}
	cancelledColor = color.RGBA{158, 158, 158, 200}
	defaultColor   = color.RGBA{220, 220, 220, 200}

	lessonTextColor = color.RGBA{20, 24, 28, 230}
	lessonShadow    = color.RGBA{0, 0, 0, 20}
	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type fontWeight int

const (
	fontRegular fontWeight = iota
	fontBold
)

var (
	fontsOnce sync.Once
	fonts     map[fontWeight]*opentype.Font
)

func parseFonts() {
	fonts = make(map[fontWeight]*opentype.Font)
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		fonts[fontRegular] = f
	}
	if f, err := opentype.Parse(gobold.TTF); err == nil {
		fonts[fontBold] = f
	}
}

// setFont выставляет шрифт нужного размера, basicfont - запасной вариант
func setFont(dc *gg.Context, size float64, weight fontWeight) {
	fontsOnce.Do(parseFonts)

	if f, ok := fonts[weight]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// Week календарная неделя Пн-Вс
type Week struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

// WeekOptions параметры отрисовки
type WeekOptions struct {
	Location *time.Location
	Now      time.Time // для подсветки текущего дня; нулевое значение - без подсветки
}

// GenerateWeekImage рисует неделю (Пн-Вс) с занятиями репетитора и возвращает PNG
func GenerateWeekImage(weekStart time.Time, bookings []*model.Booking, opts WeekOptions) ([]byte, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	week := WeekBounds(weekStart.In(loc))

	highlightToday := false
	var today time.Time
	if !opts.Now.IsZero() {
		today = normalizeToDay(opts.Now.In(loc))
		highlightToday = !today.Before(week.start) && !today.After(week.end)
	}

	lessons := lessonsInWeek(bookings, week, loc)
	byDay := groupByDay(lessons)
	hours := calculateHourRange(lessons)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	day := week.start
	for i := 0; i < totalDaysInWeek; i++ {
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, highlightToday && day.Equal(today))
		drawDayHeader(dc, day, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, b := range byDay[day.Format("2006-01-02")] {
			drawLesson(dc, b, loc, x, y, dayWidth, hours, cellHeight)
		}

		day = day.AddDate(0, 0, 1)
	}

	if highlightToday {
		drawCurrentTimeLine(dc, opts.Now.In(loc), hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WeekBounds понедельник и воскресенье недели, в которую попадает date
func WeekBounds(date time.Time) Week {
	normalized := normalizeToDay(date)

	daysSinceMonday := int(normalized.Weekday()) - 1
	if normalized.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	start := normalized.AddDate(0, 0, -daysSinceMonday)
	return Week{start: start, end: start.AddDate(0, 0, 6)}
}

// Start начало недели
func (w Week) Start() time.Time { return w.start }

// End начало следующей недели (граница не включается)
func (w Week) End() time.Time { return w.start.AddDate(0, 0, totalDaysInWeek) }

func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// lessonsInWeek занятия недели, переведённые в часовой пояс отображения
func lessonsInWeek(bookings []*model.Booking, week Week, loc *time.Location) []*model.Booking {
	result := make([]*model.Booking, 0, len(bookings))
	for _, b := range bookings {
		start := b.StartsAt.In(loc)
		if start.Before(week.Start()) || !start.Before(week.End()) {
			continue
		}
		lesson := *b
		lesson.StartsAt = start
		lesson.EndsAt = b.EndsAt.In(loc)
		result = append(result, &lesson)
	}
	return result
}

func groupByDay(lessons []*model.Booking) map[string][]*model.Booking {
	byDay := make(map[string][]*model.Booking)
	for _, b := range lessons {
		key := b.StartsAt.Format("2006-01-02")
		byDay[key] = append(byDay[key], b)
	}
	return byDay
}

func calculateHourRange(lessons []*model.Booking) hourRange {
	minHour, maxHour := 24, 0

	for _, b := range lessons {
		startH := b.StartsAt.Hour()
		endH := b.EndsAt.Hour()
		if b.EndsAt.Minute() > 0 {
			endH++
		}
		// Занятие через полночь дорисовываем до конца дня
		if !isSameDay(b.StartsAt, b.EndsAt) {
			endH = 24
		}
		if startH < minHour {
			minHour = startH
		}
		if endH > maxHour {
			maxHour = endH
		}
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(minHour-hourPaddingTop, 0)
	end := min(maxHour+hourPaddingBottom, 24)

	return hourRange{start: start, end: end, total: end - start}
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func drawHeader(dc *gg.Context, week Week) {
	title := week.start.Format("January 2006")
	if week.start.Month() != week.end.Month() {
		title = week.start.Format("January") + " - " + week.end.Format("January 2006")
	}

	setFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+10, float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)

	for i := 0; i <= hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", (hours.start+i)%24), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	setFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(formatting.GetWeekdayShortName(date.Weekday()), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawLesson(dc *gg.Context, b *model.Booking, loc *time.Location, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startHour := float64(b.StartsAt.Hour()) + float64(b.StartsAt.Minute())/60.0
	endHour := float64(b.EndsAt.Hour()) + float64(b.EndsAt.Minute())/60.0
	if !isSameDay(b.StartsAt, b.EndsAt) {
		endHour = 24
	}

	top := y + (startHour-float64(hours.start))*cellHeight
	height := max((endHour-startHour)*cellHeight, minLessonHeight)
	width := float64(dayWidth) - float64(dayPaddingX*2)
	fill := statusColor(b.Status)

	dc.SetColor(lessonShadow)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, top+2+shadowOffset, width, height-4, lessonRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, top+2, width, height-4, lessonRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, top+2, width, height-4, lessonRadius)
	dc.Stroke()

	textX := x + dayPaddingX + 8
	textY := top + 18

	setFont(dc, lessonFontSize, fontBold)
	dc.SetColor(lessonTextColor)
	dc.DrawStringAnchored(formatting.FormatTimeRange(b.StartsAt.In(loc), b.EndsAt.In(loc)), textX, textY, 0, 0)

	if name := truncate(b.StudentName, maxLabelLen); name != "" && height > 25 {
		setFont(dc, lessonFontSize-2, fontRegular)
		dc.DrawStringAnchored(name, textX, textY+16, 0, 0)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func statusColor(status model.BookingStatus) color.RGBA {
	switch status {
	case model.BookingStatusPending:
		return pendingColor
	case model.BookingStatusConfirmed:
		return confirmedColor
	case model.BookingStatusCompleted:
		return completedColor
	case model.BookingStatusCancelled:
		return cancelledColor
	default:
		return defaultColor
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60.0
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	lineY := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), lineY, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), lineY)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	legendX := float64(leftLabelsWidth+totalDaysInWeek*dayWidth) + 10
	itemY := float64(imageHeight) - 130.0

	const boxW, boxH = 20.0, 14.0

	for _, status := range []model.BookingStatus{
		model.BookingStatusPending,
		model.BookingStatusConfirmed,
		model.BookingStatusCompleted,
		model.BookingStatusCancelled,
	} {
		dc.SetColor(statusColor(status))
		dc.DrawRoundedRectangle(legendX, itemY, boxW, boxH, 3)
		dc.Fill()

		setFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(formatting.GetBookingStatusDisplay(status).Text, legendX+boxW+8, itemY+boxH/2+1, 0, 0.2)
		itemY += boxH + 14
	}
}
