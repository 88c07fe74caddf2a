package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Shell is the interactive line-oriented front end. Times are optional
// RFC 3339 arguments and default to the shell clock.
type Shell struct {
	service   *InstrumentedService
	scanner   *bufio.Scanner
	out       io.Writer
	telemetry *TelemetryProvider
	now       func() time.Time
}

func NewShell(service *InstrumentedService, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		service:   service,
		scanner:   bufio.NewScanner(in),
		out:       out,
		telemetry: telemetry,
		now:       time.Now,
	}
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		// Create a new span for each command
		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "create_lots":
		s.handleCreateLots(ctx, parts)
	case "park":
		s.handlePark(ctx, parts)
	case "remove", "leave":
		s.handleRemove(ctx, parts)
	case "pay":
		s.handlePay(ctx, parts)
	case "rates":
		s.handleRates(ctx, parts)
	case "status":
		s.handleStatus()
	case "find":
		s.handleFind(parts)
	case "history":
		s.handleHistory()
	case "delete_history":
		s.handleDeleteHistory(ctx, parts)
	case "clear_history":
		s.handleClearHistory(ctx)
	case "revenue":
		s.handleRevenue()
	case "help":
		s.handleHelp()
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handleHelp() {
	s.println("create_lots <car_count> <motorcycle_count>")
	s.println("park <car|motorcycle> <license_plate> [entry_time]")
	s.println("remove <license_plate> [exit_time]")
	s.println("pay <history_id>")
	s.println("rates [<car_rate> <motorcycle_rate>]")
	s.println("status | find <license_plate> | history | revenue")
	s.println("delete_history <history_id> | clear_history | exit")
}

func (s *Shell) parseTime(ctx context.Context, parts []string, idx int) (time.Time, bool) {
	if len(parts) <= idx {
		return s.now(), true
	}
	ts, err := time.Parse(time.RFC3339, parts[idx])
	if err != nil {
		trace.SpanFromContext(ctx).AddEvent("invalid_time")
		s.printf("Invalid time %q, expected RFC 3339 such as 2024-05-10T08:00:00Z\n", parts[idx])
		return time.Time{}, false
	}
	return ts, true
}

func (s *Shell) handleCreateLots(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	if len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: create_lots <car_count> <motorcycle_count>")
		return
	}

	carCount, err1 := strconv.Atoi(parts[1])
	motorcycleCount, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || carCount < 0 || motorcycleCount < 0 {
		span.RecordError(fmt.Errorf("invalid lot counts: %s %s", parts[1], parts[2]))
		s.println("Invalid lot count")
		return
	}

	result, err := s.service.CreateLots(ctx, carCount, motorcycleCount)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Created %d car lots and %d motorcycle lots\n", result.CarLots, result.MotorcycleLots)
	for _, v := range result.Orphaned {
		s.printf("Warning: %s %s was parked in a discarded lot; its session stays open\n", v.Category, v.LicensePlate)
	}
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	if len(parts) < 3 || len(parts) > 4 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: park <car|motorcycle> <license_plate> [entry_time]")
		return
	}

	category, err := ParseCategory(parts[1])
	if err != nil {
		s.printf("Invalid category: %s\n", parts[1])
		return
	}

	entry, ok := s.parseTime(ctx, parts, 3)
	if !ok {
		return
	}

	result, err := s.service.Park(ctx, category, parts[2], entry)
	switch {
	case errors.Is(err, ErrAlreadyParked):
		s.println("Sorry, vehicle is already parked")
	case errors.Is(err, ErrLotUnavailable):
		s.printf("Sorry, no %s lot available\n", strings.ToLower(category.String()))
	case err != nil:
		s.printf("Error: %s\n", err.Error())
	default:
		s.printf("Allocated %s lot number: %d\n", strings.ToLower(category.String()), result.LotID)
	}
}

func (s *Shell) handleRemove(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	if len(parts) < 2 || len(parts) > 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: remove <license_plate> [exit_time]")
		return
	}

	exit, ok := s.parseTime(ctx, parts, 2)
	if !ok {
		return
	}

	result, err := s.service.Remove(ctx, parts[1], exit)
	switch {
	case errors.Is(err, ErrNotFound):
		s.println("Not found")
	case err != nil:
		s.printf("Error: %s\n", err.Error())
	default:
		s.printf("%s lot number %d is free. Duration %s, fee %s\n",
			result.Category, result.LotID, result.Duration, result.Fee.StringFixed(2))
	}
}

func (s *Shell) handlePay(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.println("Usage: pay <history_id>")
		return
	}

	if err := s.service.MarkPaid(ctx, parts[1]); err != nil {
		s.println("Not found")
		return
	}
	s.println("Payment recorded")
}

func (s *Shell) handleRates(ctx context.Context, parts []string) {
	switch len(parts) {
	case 1:
		rates := s.service.Rates()
		s.printf("Car: %s/h, Motorcycle: %s/h\n", rates.CarHourlyRate.StringFixed(2), rates.MotorcycleHourlyRate.StringFixed(2))
	case 3:
		car, err1 := decimal.NewFromString(parts[1])
		motorcycle, err2 := decimal.NewFromString(parts[2])
		if err1 != nil || err2 != nil {
			s.println("Invalid rate")
			return
		}
		err := s.service.UpdateRates(ctx, RateTable{CarHourlyRate: car, MotorcycleHourlyRate: motorcycle})
		if err != nil {
			s.printf("Error: %s\n", err.Error())
			return
		}
		s.println("Rates updated")
	default:
		s.println("Usage: rates [<car_rate> <motorcycle_rate>]")
	}
}

func (s *Shell) handleStatus() {
	status := s.service.Status()
	if status.Car.Total+status.Motorcycle.Total == 0 {
		s.println("Parking lots not created")
		return
	}

	s.println("Category\tLot No.\tRegistration No\tEntry")
	for _, cs := range []CategoryStatus{status.Car, status.Motorcycle} {
		for _, lot := range cs.Lots {
			if !lot.Occupied {
				continue
			}
			s.printf("%s\t%d\t%s\t%s\n", cs.Category, lot.ID, lot.Vehicle.LicensePlate, lot.Vehicle.EntryTime.Format(time.RFC3339))
		}
	}
	s.printf("Car: %d/%d free, Motorcycle: %d/%d free\n",
		status.Car.Free, status.Car.Total, status.Motorcycle.Free, status.Motorcycle.Total)
}

func (s *Shell) handleFind(parts []string) {
	if len(parts) != 2 {
		s.println("Usage: find <license_plate>")
		return
	}

	lot, err := s.service.FindVehicle(parts[1])
	if err != nil {
		s.println("Not found")
		return
	}
	s.printf("%s %d\n", lot.Category, lot.ID)
}

func (s *Shell) handleHistory() {
	entries := s.service.History()
	if len(entries) == 0 {
		s.println("History is empty")
		return
	}

	s.println("ID\tCategory\tRegistration No\tLot\tDuration\tFee\tPaid")
	for _, e := range entries {
		fee, duration := "-", "active"
		if e.Fee != nil {
			fee = e.Fee.StringFixed(2)
			duration = e.Duration
		}
		s.printf("%s\t%s\t%s\t%d\t%s\t%s\t%t\n", e.ID, e.VehicleCategory, e.LicensePlate, e.LotID, duration, fee, e.IsPaid)
	}
}

func (s *Shell) handleDeleteHistory(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.println("Usage: delete_history <history_id>")
		return
	}
	if !s.service.DeleteHistoryEntry(ctx, parts[1]) {
		s.println("Not found")
		return
	}
	s.println("History entry deleted")
}

func (s *Shell) handleClearHistory(ctx context.Context) {
	n := s.service.ClearAllHistory(ctx)
	s.printf("Cleared %d history entries\n", n)
}

func (s *Shell) handleRevenue() {
	r := s.service.Revenue()
	s.printf("Revenue: %s (collected %s, outstanding %s)\n",
		r.Billed.StringFixed(2), r.Collected.StringFixed(2), r.Outstanding.StringFixed(2))
}
