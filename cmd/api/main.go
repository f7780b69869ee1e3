// cmd/api/main.go
// Main entry point for the application
// Bootstraps all components and starts the server

package main

import (
    "context"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/go-redis/redis/v8"
    "github.com/google/uuid"
    "github.com/gorilla/mux"
    "github.com/jmoiron/sqlx"
    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    // Internal packages
    "github.com/emberly-app/emberly-backend/internal/auth"
    "github.com/emberly-app/emberly-backend/internal/billing"
    "github.com/emberly-app/emberly-backend/internal/common/database"
    "github.com/emberly-app/emberly-backend/internal/config"
    "github.com/emberly-app/emberly-backend/internal/discovery"
    "github.com/emberly-app/emberly-backend/internal/notification"
    "github.com/emberly-app/emberly-backend/internal/profile"
)

func main() {
    log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

    log.Println("========================================")
    log.Println("🚀 Starting Emberly Dating API")
    log.Println("========================================")

    // 1. Load environment variables
    log.Println("📁 Step 1: Loading .env file...")
    if err := godotenv.Load(); err != nil {
        log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
    } else {
        log.Println("✅ .env file loaded successfully")
    }

    // 2. Load configuration
    log.Println("\n📋 Step 2: Loading configuration...")
    cfg := config.Load()
    log.Printf("✅ Configuration loaded")

    // 3. Validate configuration
    log.Println("\n✔️  Step 3: Validating configuration...")
    if err := cfg.Validate(); err != nil {
        log.Fatal("❌ Configuration validation failed:", err)
    }
    log.Println("✅ Configuration is valid")

    // 4. Connect to PostgreSQL
    log.Println("\n🗄️  Step 4: Connecting to PostgreSQL...")
    db, err := database.NewPostgresDB(cfg.DatabaseURL)
    if err != nil {
        log.Fatal("❌ Failed to connect to PostgreSQL:", err)
    }
    defer db.Close()
    log.Println("✅ Connected to PostgreSQL successfully")

    // 5. Connect to Redis (optional)
    log.Println("\n📮 Step 5: Connecting to Redis...")
    var redisClient *redis.Client
    if cfg.RedisURL != "" {
        redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
        if err != nil {
            log.Printf("⚠️  Redis unavailable: %v, continuing without Redis", err)
            redisClient = nil
        } else {
            defer redisClient.Close()
            log.Println("✅ Connected to Redis successfully")
        }
    } else {
        log.Println("⚠️  Redis URL not configured, skipping Redis connection")
    }

    // 6. Run database migrations
    log.Println("\n🔨 Step 6: Running database migrations...")
    if err := runMigrations(db); err != nil {
        log.Printf("❌ Migration error: %v", err)
        log.Fatal("Failed to run migrations")
    }
    log.Println("✅ Database migrations completed")

    // 7. Initialize auth middleware
    log.Println("\n🔐 Step 7: Initializing authentication...")
    authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
    log.Println("✅ Authentication initialized")

    // 8. Initialize Profile module
    log.Println("\n👤 Step 8: Initializing Profile module...")
    profileRepo := profile.NewPostgresRepository(db)
    profileService := profile.NewService(profileRepo)
    profileHandler := profile.NewHandler(profileService)

    // Every authenticated request refreshes last_active so the online-only
    // filter and recency ranking track real activity. Best effort, off the
    // request path.
    authMiddleware.OnAuthenticated(func(ctx context.Context, userID int64) {
        go func() {
            touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
            defer cancel()
            if err := profileService.TouchLastActive(touchCtx, userID); err != nil {
                log.Printf("last_active touch failed for user %d: %v", userID, err)
            }
        }()
    })
    log.Println("✅ Profile module initialized")

    // 9. Initialize Discovery module
    log.Println("\n💘 Step 9: Initializing Discovery module...")

    ledger := discovery.NewPostgresLedger(db)
    discoveryRepo := discovery.NewPostgresRepository(db)
    entitlements := billing.NewEntitlementService(db, cfg.SuperLikesPerDay)
    notifier := notification.NewAsyncNotifier(db)

    var viewTracker discovery.ViewTracker
    if redisClient != nil {
        viewTracker = discovery.NewRedisViewTracker(redisClient, cfg.ViewDedupTTL)
        log.Println("   ✅ Using Redis for profile-view dedup")
    } else {
        viewTracker = discovery.NopViewTracker{}
        log.Println("   ⚠️  Redis unavailable, profile views are not deduplicated")
    }

    discoveryService := discovery.NewService(
        ledger,
        discoveryRepo,
        entitlements,
        notifier,
        viewTracker,
        discovery.Settings{
            DefaultPageSize:     cfg.DefaultPageSize,
            MaxPageSize:         cfg.MaxPageSize,
            OnlineWindow:        cfg.OnlineWindow,
            LikesPerDay:         cfg.LikesPerDay,
            LikesPerDayVerified: cfg.LikesPerDayVerified,
            RewindsPerDay:       cfg.RewindsPerDay,
            RewindWindow:        cfg.RewindWindow,
            UnlimitedSentinel:   cfg.UnlimitedSentinel,
            DislikeExpiryDays:   cfg.DislikeExpiryDays,
        },
    )
    discoveryHandler := discovery.NewHandler(discoveryService)
    log.Println("✅ Discovery module initialized")

    // 10. Setup routes
    log.Println("\n🛣️  Step 10: Setting up routes...")
    router := mux.NewRouter()

    router.HandleFunc("/health", healthCheck).Methods("GET")
    router.Handle("/metrics", promhttp.Handler()).Methods("GET")

    profile.RegisterRoutes(router, profileHandler, authMiddleware)
    log.Println("   ✅ Profile routes registered")

    discovery.RegisterRoutes(router, discoveryHandler, authMiddleware)
    log.Println("   ✅ Discovery routes registered")

    router.Use(requestIDMiddleware)
    router.Use(loggingMiddleware)
    router.Use(corsMiddleware)

    // 11. Create and start HTTP server
    srv := &http.Server{
        Addr:         fmt.Sprintf(":%s", cfg.Port),
        Handler:      router,
        ReadTimeout:  15 * time.Second,
        WriteTimeout: 15 * time.Second,
        IdleTimeout:  60 * time.Second,
    }

    go func() {
        log.Println("\n========================================")
        log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
        log.Printf("🌍 Environment: %s", cfg.Environment)
        log.Println("========================================")

        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal("❌ Failed to start server:", err)
        }
    }()

    // Wait for interrupt signal
    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit

    log.Println("\n⚠️  Shutdown signal received...")

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    if err := srv.Shutdown(ctx); err != nil {
        log.Fatal("❌ Server forced to shutdown:", err)
    }

    log.Println("✅ Server exited gracefully")
}

var startTime = time.Now()

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusOK)
    fmt.Fprintf(w, `{"status":"healthy","timestamp":%q,"uptime":%q}`,
        time.Now().Format(time.RFC3339), time.Since(startTime).String())
}

// Middleware functions

// requestIDMiddleware tags every request with an id for log correlation
func requestIDMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        requestID := r.Header.Get("X-Request-ID")
        if requestID == "" {
            requestID = uuid.NewString()
        }
        w.Header().Set("X-Request-ID", requestID)
        next.ServeHTTP(w, r)
    })
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()

        log.Printf("→ %s %s from %s", r.Method, r.RequestURI, r.RemoteAddr)

        wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
        next.ServeHTTP(wrapped, r)

        duration := time.Since(start)
        log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
    })
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
    http.ResponseWriter
    statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
    rw.statusCode = code
    rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

        if r.Method == "OPTIONS" {
            w.WriteHeader(http.StatusOK)
            return
        }

        next.ServeHTTP(w, r)
    })
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
    log.Println("   - Creating/updating tables...")

    migrations := []string{
        // Users table
        `CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            email VARCHAR(255) UNIQUE NOT NULL,
            password_hash VARCHAR(255),
            is_active BOOLEAN DEFAULT TRUE,
            email_verified BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,

        // Profiles table
        `CREATE TABLE IF NOT EXISTS profiles (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            display_name VARCHAR(100) NOT NULL DEFAULT '',
            bio TEXT,
            birth_date DATE,
            gender VARCHAR(30) NOT NULL DEFAULT '',
            genders_sought TEXT[] NOT NULL DEFAULT '{}',
            age_min_preference INTEGER NOT NULL DEFAULT 18,
            age_max_preference INTEGER NOT NULL DEFAULT 99,
            relationship_types_sought TEXT[] NOT NULL DEFAULT '{}',
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            distance_max_km INTEGER NOT NULL DEFAULT 100,
            is_hidden BOOLEAN DEFAULT FALSE,
            allow_in_discovery BOOLEAN DEFAULT TRUE,
            verified_only BOOLEAN DEFAULT FALSE,
            online_only BOOLEAN DEFAULT FALSE,
            is_verified BOOLEAN DEFAULT FALSE,
            main_photo_url TEXT,
            photo_count INTEGER NOT NULL DEFAULT 0,
            profile_views INTEGER NOT NULL DEFAULT 0,
            likes_received INTEGER NOT NULL DEFAULT 0,
            last_active TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,

        // Canonical interaction ledger
        `CREATE TABLE IF NOT EXISTS interaction_history (
            id BIGSERIAL PRIMARY KEY,
            actor_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            target_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            interaction_type VARCHAR(20) NOT NULL,
            is_revoked BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            revoked_at TIMESTAMPTZ,
            CONSTRAINT no_self_interaction CHECK (actor_id <> target_id)
        )`,
        // One active row per (actor, target, type); revoked history unbounded
        `CREATE UNIQUE INDEX IF NOT EXISTS idx_interaction_active_unique
            ON interaction_history(actor_id, target_id, interaction_type)
            WHERE NOT is_revoked`,
        `CREATE INDEX IF NOT EXISTS idx_interaction_actor ON interaction_history(actor_id, created_at DESC)`,
        `CREATE INDEX IF NOT EXISTS idx_interaction_target ON interaction_history(target_id) WHERE NOT is_revoked`,

        // Matches, stored with user1_id < user2_id
        `CREATE TABLE IF NOT EXISTS matches (
            id BIGSERIAL PRIMARY KEY,
            user1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            status VARCHAR(20) NOT NULL DEFAULT 'active',
            user1_unread INTEGER NOT NULL DEFAULT 0,
            user2_unread INTEGER NOT NULL DEFAULT 0,
            last_message_at TIMESTAMPTZ,
            last_message_preview TEXT,
            deleted_by BIGINT,
            matched_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT ordered_pair CHECK (user1_id < user2_id),
            CONSTRAINT unique_match_pair UNIQUE (user1_id, user2_id)
        )`,
        `CREATE INDEX IF NOT EXISTS idx_matches_user1 ON matches(user1_id) WHERE status = 'active'`,
        `CREATE INDEX IF NOT EXISTS idx_matches_user2 ON matches(user2_id) WHERE status = 'active'`,

        // Daily swipe counters, one row per user per UTC day
        `CREATE TABLE IF NOT EXISTS daily_like_limits (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            day DATE NOT NULL,
            likes_used INTEGER NOT NULL DEFAULT 0,
            super_likes_used INTEGER NOT NULL DEFAULT 0,
            rewinds_used INTEGER NOT NULL DEFAULT 0,
            CONSTRAINT unique_user_day UNIQUE (user_id, day)
        )`,

        // Boosts
        `CREATE TABLE IF NOT EXISTS boosts (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            starts_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            expires_at TIMESTAMPTZ NOT NULL,
            views_gained INTEGER NOT NULL DEFAULT 0,
            likes_gained INTEGER NOT NULL DEFAULT 0
        )`,
        `CREATE INDEX IF NOT EXISTS idx_boosts_user_active ON boosts(user_id, expires_at)`,

        // Blocks
        `CREATE TABLE IF NOT EXISTS user_blocks (
            blocker_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            blocked_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (blocker_id, blocked_id)
        )`,

        // Legacy swipe tables, kept in sync by the write-through shim until
        // the last reader moves to interaction_history
        `CREATE TABLE IF NOT EXISTS likes (
            id BIGSERIAL PRIMARY KEY,
            sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            is_super BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_like_pair UNIQUE (sender_id, receiver_id)
        )`,
        `CREATE TABLE IF NOT EXISTS dislikes (
            id BIGSERIAL PRIMARY KEY,
            sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            expires_at TIMESTAMPTZ NOT NULL,
            CONSTRAINT unique_dislike_pair UNIQUE (sender_id, receiver_id)
        )`,

        // Subscriptions (read side only; billing service owns writes)
        `CREATE TABLE IF NOT EXISTS subscription_plans (
            id BIGSERIAL PRIMARY KEY,
            name VARCHAR(100) NOT NULL,
            super_likes_per_day INTEGER,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
        `CREATE TABLE IF NOT EXISTS subscriptions (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            plan_id BIGINT REFERENCES subscription_plans(id),
            status VARCHAR(20) NOT NULL DEFAULT 'active',
            expires_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
        `CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id, status)`,

        // In-app notifications
        `CREATE TABLE IF NOT EXISTS notifications (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            notification_type VARCHAR(30) NOT NULL,
            payload JSONB NOT NULL DEFAULT '{}',
            read_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
        `CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
    }

    for i, migration := range migrations {
        log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
        if _, err := db.Exec(migration); err != nil {
            if !strings.Contains(err.Error(), "already exists") {
                return fmt.Errorf("migration %d failed: %w", i+1, err)
            }
            log.Printf("   - Migration %d skipped (already exists)", i+1)
        }
    }

    log.Println("   ✅ All migrations executed successfully")
    return nil
}
