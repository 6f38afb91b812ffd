// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/poiesic/taskvault"
	"github.com/poiesic/taskvault/config"
	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/reconcile"
	"github.com/poiesic/taskvault/repository"
	"github.com/poiesic/taskvault/storage"
	"github.com/poiesic/taskvault/storage/document"
	"github.com/urfave/cli/v2"
)

func initCommand(c *cli.Context) error {
	path := c.String("output")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Write(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

// openManager loads the configuration and initializes a backend manager.
// adjust, when not nil, may change the configuration before it is applied.
func openManager(ctx context.Context, c *cli.Context, adjust func(*config.Config)) (*taskvault.Manager, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	m := taskvault.NewManager()
	if err := m.Initialize(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	return m, nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()
	m, err := openManager(ctx, c, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	repos, err := m.Repositories()
	if err != nil {
		return err
	}
	projects, err := repos.Projects.FindAll(ctx, core.NoPartition)
	if err != nil {
		return err
	}
	users, err := repos.Users.Count(ctx, core.NoPartition)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Projects:\t%d\n", len(projects))
	fmt.Fprintf(w, "Users:\t%d\n", users)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PROJECT\tLISTS\tTASKS\tSUBTASKS\tTAGS\tTAGGED\tASSIGNED\tDELETED")
	for _, p := range projects {
		row, err := projectStats(ctx, repos, p.ID)
		if err != nil {
			return err
		}
		name := p.Name
		if p.IsDeleted() {
			name += " (deleted)"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", name,
			row.lists, row.tasks, row.subtasks, row.tags, row.tagged, row.assigned, row.deletedTasks)
	}
	return w.Flush()
}

type projectCounts struct {
	lists, tasks, subtasks, tags, tagged, assigned, deletedTasks int
}

func projectStats(ctx context.Context, repos *taskvault.Repositories, project core.ID) (projectCounts, error) {
	var row projectCounts
	var err error
	if row.lists, err = repos.TaskLists.Count(ctx, project); err != nil {
		return row, err
	}
	tasks, err := repos.Tasks.FindAll(ctx, project)
	if err != nil {
		return row, err
	}
	row.tasks = len(tasks)
	for _, t := range tasks {
		if t.IsDeleted() {
			row.deletedTasks++
		}
	}
	if row.subtasks, err = repos.Subtasks.Count(ctx, project); err != nil {
		return row, err
	}
	if row.tags, err = repos.Tags.Count(ctx, project); err != nil {
		return row, err
	}
	if row.tagged, err = repos.TaskTags.Count(ctx, project); err != nil {
		return row, err
	}
	if row.assigned, err = repos.TaskAssignments.Count(ctx, project); err != nil {
		return row, err
	}
	return row, nil
}

func exportHistoryCommand(c *cli.Context) error {
	ctx := context.Background()
	m, err := openManager(ctx, c, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	docs, err := m.Documents()
	if err != nil {
		return err
	}
	h, err := docs.GetOrCreate(ctx, core.ID(c.String("partition")))
	if err != nil {
		return err
	}
	path, err := docs.ExportHistory(ctx, h, c.String("dir"), document.ParsePath(c.String("path")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func resolveCommand(c *cli.Context) error {
	ctx := context.Background()
	m, err := openManager(ctx, c, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	child, hint := core.ID(c.String("child")), core.ID(c.String("hint"))
	var project core.ID
	switch relation := c.String("relation"); relation {
	case "tag":
		r, rerr := m.TagResolver()
		if rerr != nil {
			return rerr
		}
		project, err = r.Resolve(ctx, child, hint)
	case "assignment":
		r, rerr := m.AssignmentResolver()
		if rerr != nil {
			return rerr
		}
		project, err = r.Resolve(ctx, child, hint)
	default:
		return fmt.Errorf("unknown relation %q: must be tag or assignment", relation)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no project holds %s", child)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, project)
	return nil
}

func parseKind(name string) (repository.Kind, error) {
	switch name {
	case "relational":
		return repository.Relational, nil
	case "document":
		return repository.Document, nil
	}
	return 0, fmt.Errorf("unknown backend %q: must be document or relational", name)
}

func reconcileCommand(c *cli.Context) error {
	from, err := parseKind(c.String("from"))
	if err != nil {
		return err
	}
	to, err := parseKind(c.String("to"))
	if err != nil {
		return err
	}
	if from == to {
		return errors.New("--from and --to must differ")
	}
	cfg := &reconcile.Config{
		ReportInterval:  c.Int("report-interval"),
		MaxRetries:      c.Int("max-retries"),
		RetryDelay:      c.Duration("retry-delay"),
		Prune:           c.Bool("prune"),
		ContinueOnError: c.Bool("continue-on-error"),
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	ctx := context.Background()
	m, err := openManager(ctx, c, func(cfg *config.Config) {
		cfg.Backends = config.BackendsConfig{RelationalSearch: true, RelationalSave: true, DocumentSave: true}
	})
	if err != nil {
		return err
	}
	defer m.Close()

	repos, err := m.Repositories()
	if err != nil {
		return err
	}
	jobs := reconcileJobs(repos)
	selected := c.StringSlice("type")
	for _, name := range selected {
		if !slices.ContainsFunc(jobs, func(j job) bool { return j.collection == name }) {
			return fmt.Errorf("unknown entity collection %q", name)
		}
	}

	// Partitions are listed from the source so entities missing in the target are found.
	projects, err := sourcePartitions(ctx, repos.Projects, from)
	if err != nil {
		return err
	}
	users, err := sourcePartitions(ctx, repos.Users, from)
	if err != nil {
		return err
	}
	scopes := map[storage.Scope][]core.ID{
		storage.ScopeGlobal:  {core.NoPartition},
		storage.ScopeProject: projects,
		storage.ScopeUser:    users,
	}

	out := c.App.ErrWriter
	for _, j := range jobs {
		if len(selected) > 0 && !slices.Contains(selected, j.collection) {
			continue
		}
		fmt.Fprintf(out, "%s: %s -> %s\n", j.collection, from, to)
		result, err := j.run(ctx, from, to, scopes[j.scope], cfg, out)
		if result != nil {
			fmt.Fprintf(out, "%s: %d copied, %d pruned, %d failed\n",
				j.collection, result.Copied, result.Pruned, len(result.Failures))
		}
		if err != nil {
			return fmt.Errorf("%s: %w", j.collection, err)
		}
	}
	return nil
}

type job struct {
	collection string
	scope      storage.Scope
	run        func(ctx context.Context, from, to repository.Kind, partitions []core.ID, cfg *reconcile.Config, w io.Writer) (*reconcile.Result, error)
}

func reconcileJobs(repos *taskvault.Repositories) []job {
	return []job{
		newJob(repos.Projects),
		newJob(repos.Users),
		newJob(repos.TaskLists),
		newJob(repos.Tasks),
		newJob(repos.Subtasks),
		newJob(repos.Tags),
		newJob(repos.TaskTags),
		newJob(repos.TaskAssignments),
		newJob(repos.Preferences),
	}
}

func newJob[T storage.Entity](repo *repository.Repository[T]) job {
	typ := repo.EntityType()
	return job{
		collection: typ.Collection,
		scope:      typ.Scope,
		run: func(ctx context.Context, from, to repository.Kind, partitions []core.ID, cfg *reconcile.Config, w io.Writer) (*reconcile.Result, error) {
			source, ok := repo.Backend(from)
			if !ok {
				return nil, fmt.Errorf("%s backend is not configured", from)
			}
			target, ok := repo.Backend(to)
			if !ok {
				return nil, fmt.Errorf("%s backend is not configured", to)
			}
			return reconcile.Run[T](ctx, source, target, partitions, cfg, w)
		},
	}
}

func sourcePartitions[T storage.Entity](ctx context.Context, repo *repository.Repository[T], from repository.Kind) ([]core.ID, error) {
	source, ok := repo.Backend(from)
	if !ok {
		return nil, fmt.Errorf("%s backend is not configured", from)
	}
	all, err := source.FindAll(ctx, core.NoPartition)
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, 0, len(all))
	for _, e := range all {
		ids = append(ids, e.EntityID())
	}
	return ids, nil
}
