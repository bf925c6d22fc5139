package seed

import (
	"fmt"
	"log"

	"publicfeed/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Run populates the database with demo users, posts, comments and reactions.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 10
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 50
	}

	if opts.ShouldClean {
		log.Println("Cleaning existing data...")
		for _, table := range []string{"reactions", "comments", "posts", "users"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("cleaning %s: %w", table, err)
			}
		}
	}

	f := NewFactory(db)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Created %d users (password %q)", len(users), DefaultPassword)

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rand.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return fmt.Errorf("creating post: %w", err)
		}
		posts = append(posts, post)
	}
	log.Printf("Created %d posts", len(posts))

	comments, reactions := 0, 0
	for _, post := range posts {
		for _, user := range users {
			switch f.rand.Intn(5) {
			case 0:
				if err := f.CreateReaction(user, post, models.ReactionLike); err != nil {
					return fmt.Errorf("creating reaction: %w", err)
				}
				reactions++
			case 1:
				if err := f.CreateReaction(user, post, models.ReactionDislike); err != nil {
					return fmt.Errorf("creating reaction: %w", err)
				}
				reactions++
			case 2:
				if _, err := f.CreateComment(user, post); err != nil {
					return fmt.Errorf("creating comment: %w", err)
				}
				comments++
			}
		}
	}
	log.Printf("Created %d reactions and %d comments", reactions, comments)

	return nil
}
