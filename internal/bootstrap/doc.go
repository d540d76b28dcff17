// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootstrap handles RDE data layout initialization and component
// assembly.
//
// This internal package turns a loaded configuration into the long-lived
// components the CLI commands share: the badger-backed store, the git
// client, and the LLM provider.
//
// # Initialization Workflow
//
// A typical workflow for setting up a new RDE installation:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create the data and repository directories and the database.
//	if err := bootstrap.Init(cfg, logger); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Later, open the assembled application.
//	app, err := bootstrap.Open(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Close()
//
// # Idempotency
//
// Init is idempotent: running it against an already initialized layout is
// safe and will not corrupt existing data. This makes it suitable for use
// in scripts and automated workflows.
//
// Open fails when the data directory is missing, pointing the user at
// 'rde init' rather than silently creating an empty database in the wrong
// place.
package bootstrap
