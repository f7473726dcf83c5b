// Package calendar renders events as iCalendar documents.
package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"begegnungscafe/internal/domain"
)

const productID = "-//Begegnungscafe//Events//DE"

type icalEncoder struct {
	domain string
	now    func() time.Time
}

// NewICalEncoder returns a CalendarEncoder that writes one VEVENT per event.
// uidDomain is appended to event ids to form globally unique UIDs.
func NewICalEncoder(uidDomain string) domain.CalendarEncoder {
	return &icalEncoder{domain: uidDomain, now: time.Now}
}

func (e *icalEncoder) Encode(events []*domain.Event) ([]byte, error) {
	if len(events) == 0 {
		return nil, errors.New("encode calendar: no events")
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	stamp := e.now().UTC()
	for _, ev := range events {
		cal.Children = append(cal.Children, e.toVEvent(ev, stamp))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *icalEncoder) toVEvent(ev *domain.Event, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", ev.ID, e.domain))
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, ev.DateTimeStart.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.DateTimeEnd.UTC())

	if ev.Description != "" {
		ve.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		ve.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Category != "" {
		ve.Props.SetText(ical.PropCategories, ev.Category)
	}
	if ev.SeriesID != nil {
		p := ical.NewProp(ical.PropRelatedTo)
		p.SetText(fmt.Sprintf("%s@%s", *ev.SeriesID, e.domain))
		ve.Props.Add(p)
	}
	return ve
}
