// Seed tool: fills a database with groups, users and posts for local work.
// Groups are upserted by slug; users that already exist are reused.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/config"
	"github.com/emilythestrangee/yatube/internal/database"
	"github.com/emilythestrangee/yatube/internal/logging"
	"github.com/emilythestrangee/yatube/internal/models"
)

func main() {
	var (
		databaseURL string
		groups      string
		numUsers    int
		numPosts    int
		batchSize   int
		password    string
	)
	_ = godotenv.Load()
	flag.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres DSN")
	flag.StringVar(&groups, "groups", "cats:Cats,dogs:Dogs,travel:Travel", "comma separated slug:Title pairs")
	flag.IntVar(&numUsers, "users", 5, "number of users")
	flag.IntVar(&numPosts, "posts", 50, "number of posts to insert")
	flag.IntVar(&batchSize, "batch", 100, "insert batch size")
	flag.StringVar(&password, "password", "password123", "password given to seeded users")
	flag.Parse()

	logging.Setup("info")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL or -database-url is required")
	}

	db, err := database.NewPostgres(&config.Config{
		DatabaseURL:   databaseURL,
		DBMaxOpen:     5,
		DBMaxIdle:     5,
		DBMaxLifetime: time.Hour,
	})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()

	groupIDs, err := seedGroups(ctx, db.DB, groups)
	if err != nil {
		log.Fatalf("seed groups: %v", err)
	}
	userIDs, err := seedUsers(ctx, db.DB, numUsers, password)
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if err := seedPosts(ctx, db.DB, r, userIDs, groupIDs, numPosts, batchSize); err != nil {
		log.Fatalf("seed posts: %v", err)
	}

	log.Infof("done in %s", time.Since(start).Truncate(time.Millisecond))
}

// parseGroups reads "slug:Title" pairs; a missing title falls back to the slug.
func parseGroups(list string) ([]models.Group, error) {
	var out []models.Group
	for _, pair := range strings.Split(list, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		slug, title, _ := strings.Cut(pair, ":")
		slug = strings.TrimSpace(slug)
		if slug == "" {
			return nil, fmt.Errorf("empty slug in %q", pair)
		}
		if title = strings.TrimSpace(title); title == "" {
			title = slug
		}
		out = append(out, models.Group{
			Slug:        slug,
			Title:       title,
			Description: "Posts about " + strings.ToLower(title),
		})
	}
	return out, nil
}

func seedGroups(ctx context.Context, db *gorm.DB, list string) ([]int, error) {
	groups, err := parseGroups(list)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).
		Create(&groups).Error
	if err != nil {
		return nil, err
	}

	slugs := make([]string, len(groups))
	for i, g := range groups {
		slugs[i] = g.Slug
	}
	var ids []int
	if err := db.WithContext(ctx).Model(&models.Group{}).Where("slug IN ?", slugs).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	log.Infof("seeded %d groups", len(ids))
	return ids, nil
}

func seedUsers(ctx context.Context, db *gorm.DB, n int, password string) ([]int, error) {
	svc := auth.NewService(db, "seed")
	ids := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		username := fmt.Sprintf("user%d", i)
		user, err := svc.Register(ctx, models.SignupForm{Username: username, Password: password})
		if errors.Is(err, auth.ErrUsernameTaken) {
			var existing models.User
			if err := db.WithContext(ctx).Where("username = ?", username).First(&existing).Error; err != nil {
				return nil, err
			}
			user = &existing
		} else if err != nil {
			return nil, err
		}
		ids = append(ids, user.ID)
	}
	log.Infof("seeded %d users", len(ids))
	return ids, nil
}

// seedPosts spreads posts uniformly over the last month.
func seedPosts(ctx context.Context, db *gorm.DB, r *rand.Rand, userIDs, groupIDs []int, n, batchSize int) error {
	if len(userIDs) == 0 || n <= 0 {
		return nil
	}

	now := time.Now().UTC()
	monthAgo := now.Add(-30 * 24 * time.Hour)

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		post := models.Post{
			Text:     fmt.Sprintf("Seeded post number %d", i+1),
			AuthorID: userIDs[r.Intn(len(userIDs))],
			PubDate:  monthAgo.Add(time.Duration(r.Int63n(int64(now.Sub(monthAgo))))),
		}
		// roughly a quarter of the posts stay outside any group
		if len(groupIDs) > 0 && r.Intn(4) != 0 {
			id := groupIDs[r.Intn(len(groupIDs))]
			post.GroupID = &id
		}
		posts = append(posts, post)
	}

	if err := db.WithContext(ctx).CreateInBatches(&posts, batchSize).Error; err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}
	log.Infof("seeded %d posts", len(posts))
	return nil
}
