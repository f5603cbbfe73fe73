package services

import (
	"context"
	"fmt"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	// GetStats собирает сводные показатели панели администратора.
	// Счётчики выбираются параллельно.
	GetStats(ctx context.Context) (*models.DashboardStats, error)
}

type dashboardService struct {
	userRepo         repositories.UserRepository
	eventRepo        repositories.EventRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	eventRepo repositories.EventRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
) DashboardService {
	return &dashboardService{
		userRepo:         userRepo,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := s.userRepo.Count(gctx, models.UserFilter{})
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		stats.UsersTotal = total
		return nil
	})

	g.Go(func() error {
		role := models.RoleVolunteer
		active := true
		count, err := s.userRepo.Count(gctx, models.UserFilter{Role: &role, IsActive: &active})
		if err != nil {
			return fmt.Errorf("failed to count active volunteers: %w", err)
		}
		stats.ActiveVolunteers = count
		return nil
	})

	g.Go(func() error {
		total, err := s.eventRepo.Count(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to count events: %w", err)
		}
		stats.EventsTotal = total
		return nil
	})

	g.Go(func() error {
		published := models.EventStatusPublished
		count, err := s.eventRepo.Count(gctx, &published)
		if err != nil {
			return fmt.Errorf("failed to count published events: %w", err)
		}
		stats.PublishedEvents = count
		return nil
	})

	g.Go(func() error {
		total, err := s.registrationRepo.Count(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to count registrations: %w", err)
		}
		stats.RegistrationsTotal = total
		return nil
	})

	g.Go(func() error {
		confirmed := models.RegistrationStatusConfirmed
		count, err := s.registrationRepo.Count(gctx, &confirmed)
		if err != nil {
			return fmt.Errorf("failed to count confirmed registrations: %w", err)
		}
		stats.ConfirmedRegistrations = count
		return nil
	})

	g.Go(func() error {
		total, err := s.teamRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count teams: %w", err)
		}
		stats.TeamsTotal = total
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
