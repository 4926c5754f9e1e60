package google

import calendar "google.golang.org/api/calendar/v3"

// CalendarScopes are the OAuth scopes meetgate requests: read free/busy
// across calendars and create events on the owner's calendar.
var CalendarScopes = []string{
	calendar.CalendarReadonlyScope,
	calendar.CalendarEventsScope,
}
