package models

type DashboardStats struct {
	UsersTotal             int `json:"users_total"`
	ActiveVolunteers       int `json:"active_volunteers"`
	EventsTotal            int `json:"events_total"`
	PublishedEvents        int `json:"published_events"`
	RegistrationsTotal     int `json:"registrations_total"`
	ConfirmedRegistrations int `json:"confirmed_registrations"`
	TeamsTotal             int `json:"teams_total"`
}
