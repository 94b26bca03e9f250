package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "ReferLab"
	app.Usage = "Referral chain and reward distribution engine"
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start the api service",
			Category:    "Api",
			Description: `Serves the referral, reward and analytics endpoints.`,
		},
		{
			Action:      server.startWorker,
			Name:        "worker",
			Usage:       "Start the job worker",
			Category:    "Worker",
			Description: `Consumes the job topic and drives referral lifecycles.`,
		},
		{
			Action:      server.startCron,
			Name:        "cron",
			Usage:       "Start the cron scheduler",
			Category:    "Worker",
			Description: `Runs the periodic expiry sweeps.`,
		},
		{
			Action:      server.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Category:    "Operation",
			Description: `Creates or updates tables and seeds the tier ladder.`,
		},
	}

	s.app = app
}
