package sqlserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/syssam/sqlsrv/sqldom"
	"github.com/syssam/sqlsrv/sqltype"
)

// Intervals are stored as a bigint count of nanoseconds.
var intervalType = sqltype.New(sqltype.Int64)

const (
	nsPerMillisecond = int64(time.Millisecond)
	nsPerDay         = int64(24 * time.Hour)
	msPerDay         = nsPerDay / nsPerMillisecond
)

// constructEpoch is the base of DATEADD chains building dates from parts.
var constructEpoch = civil.Date{Year: 2000, Month: time.January, Day: 1}

func (c *Compiler) compileDateFunction(ctx *Context, e *sqldom.Function) error {
	switch e.Type {
	case sqldom.FnDateTimeAddYears, sqldom.FnDateTimeAddMonths:
		part := "year"
		if e.Type == sqldom.FnDateTimeAddMonths {
			part = "month"
		}
		x, err := c.operand(ctx, e.Args[0], 0)
		if err != nil {
			return err
		}
		n, err := c.operand(ctx, e.Args[1], 0)
		if err != nil {
			return err
		}
		ctx.WriteString(dateAdd(part, n, x))
	case sqldom.FnDateTimeAddInterval, sqldom.FnDateTimeSubtractInterval:
		return c.compileAddInterval(ctx, e.Args[0], e.Args[1], e.Type == sqldom.FnDateTimeSubtractInterval)
	case sqldom.FnDateTimeSubtractDateTime:
		return c.compileDateDiff(ctx, e.Args[0], e.Args[1])
	case sqldom.FnDateTimeConstruct, sqldom.FnDateConstruct:
		return c.compileDateConstruct(ctx, e)
	case sqldom.FnTimeConstruct:
		return c.compileTimeConstruct(ctx, e.Args)
	case sqldom.FnDateTimeTruncate:
		x, err := c.operand(ctx, e.Args[0], 0)
		if err != nil {
			return err
		}
		ctx.WriteString(c.truncateDate(x))
	default:
		return c.unsupported(e.Type.String())
	}
	return nil
}

func dateAdd(part, n, x string) string {
	return "DATEADD(" + part + ", " + n + ", " + x + ")"
}

// truncateDate returns x with its time of day set to midnight.
func (c *Compiler) truncateDate(x string) string {
	if c.manifest.Supports(FeatureDateType) {
		return "CAST(CAST(" + x + " AS date) AS " + c.translator.format(sqltype.DateTime).Cast + ")"
	}
	return "DATEADD(day, DATEDIFF(day, 0, " + x + "), 0)"
}

// compileAddInterval adds (or subtracts) a nanosecond interval as whole days
// plus the remaining milliseconds, keeping each DATEADD within int range.
func (c *Compiler) compileAddInterval(ctx *Context, date, interval sqldom.Expression, subtract bool) error {
	x, err := c.operand(ctx, date, 0)
	if err != nil {
		return err
	}
	if d, ok := durationLiteral(interval); ok {
		if subtract {
			d = -d
		}
		days, ms := int64(d)/nsPerDay, int64(d)%nsPerDay/nsPerMillisecond
		if days != 0 {
			x = dateAdd("day", strconv.FormatInt(days, 10), x)
		}
		if ms != 0 || days == 0 {
			x = dateAdd("millisecond", strconv.FormatInt(ms, 10), x)
		}
		ctx.WriteString(x)
		return nil
	}
	i, err := c.operand(ctx, interval, precMul)
	if err != nil {
		return err
	}
	days := fmt.Sprintf("%s / %d", i, nsPerDay)
	ms := fmt.Sprintf("(%s / %d) %% %d", i, nsPerMillisecond, msPerDay)
	if subtract {
		days, ms = "-("+days+")", "-("+ms+")"
	}
	ctx.WriteString(dateAdd("millisecond", ms, dateAdd("day", days, x)))
	return nil
}

// compileDateDiff renders a - b as nanoseconds.
func (c *Compiler) compileDateDiff(ctx *Context, a, b sqldom.Expression) error {
	ta, ok1 := timeLiteral(a)
	tb, ok2 := timeLiteral(b)
	if ok1 && ok2 {
		return c.compileLiteral(ctx, ta.Sub(tb), false)
	}
	x, err := c.operand(ctx, a, 0)
	if err != nil {
		return err
	}
	y, err := c.operand(ctx, b, 0)
	if err != nil {
		return err
	}
	days := "DATEDIFF(day, " + y + ", " + x + ")"
	ctx.WriteString(fmt.Sprintf("(CAST(%s AS bigint) * %d + CAST(DATEDIFF(millisecond, %s, %s) AS bigint) * %d)",
		days, nsPerDay, dateAdd("day", days, y), x, nsPerMillisecond))
	return nil
}

func (c *Compiler) compileDateConstruct(ctx *Context, e *sqldom.Function) error {
	parts := make([]string, 7)
	for i := range parts {
		parts[i] = "0"
	}
	for i, arg := range e.Args {
		s, err := c.operand(ctx, arg, precMul)
		if err != nil {
			return err
		}
		parts[i] = s
	}
	if name, ok := c.translator.Function(e.Type); ok && c.manifest.Supports(FeatureDateFromParts) {
		args := parts[:3]
		if e.Type == sqldom.FnDateTimeConstruct {
			args = append(parts, "3")
		}
		ctx.WriteString(name + "(" + strings.Join(args, ", ") + ")")
		return nil
	}
	var epoch any = civil.DateTime{Date: constructEpoch}
	if e.Type == sqldom.FnDateConstruct {
		epoch = constructEpoch
	}
	x, err := c.translator.Literal(epoch, false)
	if err != nil {
		return err
	}
	x = dateAdd("year", parts[0]+" - 2000", x)
	x = dateAdd("month", parts[1]+" - 1", x)
	x = dateAdd("day", parts[2]+" - 1", x)
	for i, part := range []string{"hour", "minute", "second", "millisecond"} {
		if i+3 < len(e.Args) {
			x = dateAdd(part, parts[i+3], x)
		}
	}
	ctx.WriteString(x)
	return nil
}

// compileTimeConstruct builds a zero padded hh:mm:ss[.fff] string and casts
// it to the time type of the version.
func (c *Compiler) compileTimeConstruct(ctx *Context, args []sqldom.Expression) error {
	digits := []int{2, 2, 2, 3}
	seps := []string{"", ":", ":", "."}
	var b strings.Builder
	for i, arg := range args {
		s, err := c.operand(ctx, arg, 0)
		if err != nil {
			return err
		}
		if i > 0 {
			b.WriteString(" + " + StringLiteral(seps[i], false) + " + ")
		}
		pad := StringLiteral(strings.Repeat("0", digits[i]-1), false)
		fmt.Fprintf(&b, "RIGHT(%s + CAST(%s AS nvarchar(%d)), %d)", pad, s, digits[i], digits[i])
	}
	if len(args) == 4 {
		if extra := min(c.translator.TimeFractionDigits(), 6) - 3; extra > 0 {
			b.WriteString(" + " + StringLiteral(strings.Repeat("0", extra), false))
		}
	}
	ctx.WriteString("CAST(" + b.String() + " AS " + c.translator.format(sqltype.Time).Cast + ")")
	return nil
}

func (c *Compiler) compileExtract(ctx *Context, e *sqldom.Extract) error {
	if e.OperandKind == sqltype.Interval {
		return c.compileIntervalPart(ctx, e)
	}
	x, err := c.operand(ctx, e.Operand, 0)
	if err != nil {
		return err
	}
	switch e.Part {
	case sqldom.Year, sqldom.Month, sqldom.Day, sqldom.Hour, sqldom.Minute, sqldom.Second, sqldom.Millisecond, sqldom.DayOfYear:
		ctx.WriteString("DATEPART(" + e.Part.String() + ", " + x + ")")
	case sqldom.Nanosecond:
		if c.manifest.Supports(FeatureDateTime2) {
			ctx.WriteString("DATEPART(nanosecond, " + x + ")")
		} else {
			ctx.WriteString(fmt.Sprintf("(DATEPART(millisecond, %s) * %d)", x, nsPerMillisecond))
		}
	case sqldom.DayOfWeek:
		// DATEPART(weekday) depends on the session's DATEFIRST setting.
		shift := 6 - int(c.firstDay)
		ctx.WriteString(fmt.Sprintf("((DATEPART(weekday, %s) + @@DATEFIRST + %d) %% 7)", x, shift))
	case sqldom.Date:
		ctx.WriteString(c.truncateDate(x))
	case sqldom.TimeOfDay:
		if c.manifest.Supports(FeatureTimeType) {
			ctx.WriteString("CAST(" + x + " AS time)")
		} else {
			ctx.WriteString("DATEADD(day, -DATEDIFF(day, 0, " + x + "), " + x + ")")
		}
	default:
		return c.unsupported("date part " + e.Part.String())
	}
	return nil
}

var intervalParts = map[sqldom.DateTimePart]string{
	sqldom.Day:         fmt.Sprintf("(%%s / %d)", nsPerDay),
	sqldom.Hour:        fmt.Sprintf("((%%s / %d) %%%% 24)", int64(time.Hour)),
	sqldom.Minute:      fmt.Sprintf("((%%s / %d) %%%% 60)", int64(time.Minute)),
	sqldom.Second:      fmt.Sprintf("((%%s / %d) %%%% 60)", int64(time.Second)),
	sqldom.Millisecond: fmt.Sprintf("((%%s / %d) %%%% 1000)", nsPerMillisecond),
	sqldom.Nanosecond:  fmt.Sprintf("(%%s %%%% %d)", int64(time.Second)),
}

func (c *Compiler) compileIntervalPart(ctx *Context, e *sqldom.Extract) error {
	format, ok := intervalParts[e.Part]
	if !ok {
		return c.unsupported("interval part " + e.Part.String())
	}
	x, err := c.operand(ctx, e.Operand, precMul)
	if err != nil {
		return err
	}
	ctx.WriteString(fmt.Sprintf(format, x))
	return nil
}

func durationLiteral(e sqldom.Expression) (time.Duration, bool) {
	if l, ok := e.(*sqldom.Literal); ok {
		d, ok := l.Value.(time.Duration)
		return d, ok
	}
	return 0, false
}

// timeLiteral returns the instant of a date/time literal. Civil values are
// read as UTC.
func timeLiteral(e sqldom.Expression) (time.Time, bool) {
	l, ok := e.(*sqldom.Literal)
	if !ok {
		return time.Time{}, false
	}
	switch v := l.Value.(type) {
	case time.Time:
		return v, true
	case civil.DateTime:
		return v.In(time.UTC), true
	case civil.Date:
		return v.In(time.UTC), true
	}
	return time.Time{}, false
}
