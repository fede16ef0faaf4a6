package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/cdashconf/internal/database"
	"github.com/huangang/cdashconf/internal/services"
)

const checkTimeout = 30 * time.Second

type checkResult struct {
	name string
	err  error
	skip bool
}

func runCheck(a *app, args []string) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	results := []checkResult{{name: "configuration", err: cfg.Validate()}}

	driverName := cfg.Database.Type
	if driver, err := database.Driver(&cfg.Database); err == nil {
		driverName = driver
	}
	results = append(results, checkResult{
		name: fmt.Sprintf("database (%s %s:%s/%s)", driverName, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name),
		err:  database.Check(ctx, &cfg.Database),
	})

	ldapErr := services.NewLDAPService(&cfg.LDAP).Check(ctx)
	results = append(results, checkResult{
		name: "ldap (" + cfg.LDAP.Host + ")",
		err:  ldapErr,
		skip: errors.Is(ldapErr, services.ErrLDAPDisabled),
	})

	brokerErr := services.CheckSubmissionBroker(cfg)
	results = append(results, checkResult{
		name: "submission broker (" + cfg.Redis.Addr + ")",
		err:  brokerErr,
		skip: errors.Is(brokerErr, services.ErrSyncSubmission),
	})

	failed := 0
	for _, r := range results {
		switch {
		case r.skip:
			fmt.Printf("skip  %s\n", r.name)
		case r.err != nil:
			failed++
			fmt.Printf("FAIL  %s: %v\n", r.name, r.err)
		default:
			fmt.Printf("ok    %s\n", r.name)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}
