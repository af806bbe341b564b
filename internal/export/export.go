package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"roombooking/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	ReservationsSheet = "Reservations"
	RoomsSheet        = "Rooms"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ReservationLister interface {
	List(ctx context.Context) ([]*models.Reservation, error)
	ListByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error)
}

type UserLister interface {
	List(ctx context.Context) ([]*models.User, error)
}

type RoomLister interface {
	List(ctx context.Context) ([]*models.Room, error)
}

// Exporter renders reservations as an XLSX workbook.
type Exporter struct {
	reservations ReservationLister
	users        UserLister
	rooms        RoomLister
}

func NewExporter(reservations ReservationLister, users UserLister, rooms RoomLister) *Exporter {
	return &Exporter{reservations: reservations, users: users, rooms: rooms}
}

// WriteXLSX writes the workbook to w: one row per reservation in id order, plus a
// per-room summary sheet.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer) error {
	reservations, err := e.reservations.List(ctx)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	users, err := e.users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	rooms, err := e.rooms.List(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	userNames := make(map[int64]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.FullName
	}
	roomNames := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReservationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RoomsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(f, ReservationsSheet, 1, []any{"ID", "Room", "User", "Start (UTC)", "End (UTC)", "Status"}); err != nil {
		return err
	}
	_ = f.SetCellStyle(ReservationsSheet, "A1", "F1", header)

	for i, r := range reservations {
		row := []any{
			r.ID,
			roomNames[r.RoomID],
			userNames[r.UserID],
			r.StartTime.UTC().Format(time.RFC3339),
			r.EndTime.UTC().Format(time.RFC3339),
			r.Status,
		}
		if err := writeRow(f, ReservationsSheet, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(ReservationsSheet, "A", "A", 8)
	_ = f.SetColWidth(ReservationsSheet, "B", "C", 25)
	_ = f.SetColWidth(ReservationsSheet, "D", "E", 22)
	_ = f.SetColWidth(ReservationsSheet, "F", "F", 12)

	if err := writeRow(f, RoomsSheet, 1, []any{"Room", "Capacity", "Active", "Active reservations", "Total reservations"}); err != nil {
		return err
	}
	_ = f.SetCellStyle(RoomsSheet, "A1", "E1", header)

	for i, room := range rooms {
		byRoom, err := e.reservations.ListByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("list reservations for room %d: %w", room.ID, err)
		}
		active := 0
		for _, r := range byRoom {
			if r.Status == models.StatusActive {
				active++
			}
		}
		if err := writeRow(f, RoomsSheet, i+2, []any{room.Name, room.Capacity, yesNo(room.IsActive), active, len(byRoom)}); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(RoomsSheet, "A", "A", 25)
	_ = f.SetColWidth(RoomsSheet, "B", "E", 18)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
