// Command scorerooms is the terminal client: it keeps the device session and
// talks to the daemon for everything else.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/contadorvs/scorerooms/internal/apiclient"
	appcfg "github.com/contadorvs/scorerooms/internal/config"
	"github.com/contadorvs/scorerooms/internal/msgcat"
	"github.com/contadorvs/scorerooms/internal/session"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	store := session.NewStore(cfg.SessionFile)
	sess := store.Load()

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	client := apiclient.NewClient(cfg.APIBaseURL)
	watcher := apiclient.NewWatcher(cfg.WSURL)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}
	cmd := strings.ToLower(args[0])
	args = args[1:]

	if cmd != "name" && cmd != "whoami" && !store.Onboarded() {
		fmt.Println("Primero elige un nombre: scorerooms name <nombre>")
		os.Exit(1)
	}

	ctx := context.Background()
	switch cmd {
	case "name":
		if len(args) < 1 {
			fatalUsage("name <nombre>")
		}
		store.FinishOnboarding(strings.Join(args, " "))
		fmt.Printf("Hola, %s\n", store.Session().Username)
	case "whoami":
		fmt.Printf("device=%s nombre=%q\n", sess.DeviceID, store.Session().Username)
	case "create":
		runCreate(ctx, client, cat, store, args)
	case "join":
		if len(args) < 1 {
			fatalUsage("join <código> [team-id]")
		}
		teamID := ""
		if len(args) >= 2 {
			teamID = args[1]
		}
		r, err := client.Join(ctx, args[0], roomdto.JoinRequest{
			DeviceID: sess.DeviceID,
			Username: store.Session().Username,
			TeamID:   teamID,
		})
		exitOn(err)
		notice(cat, "notices.joined", map[string]string{"Code": strings.ToUpper(args[0])})
		printRoom(r)
	case "leave":
		if len(args) < 1 {
			fatalUsage("leave <código>")
		}
		exitOn(client.Leave(ctx, args[0], sess.DeviceID))
		notice(cat, "notices.left", map[string]string{"Code": strings.ToUpper(args[0])})
	case "team":
		if len(args) < 2 {
			fatalUsage("team <código> <team-id>")
		}
		exitOn(client.ChangeTeam(ctx, args[0], sess.DeviceID, args[1]))
		notice(cat, "notices.team_changed", map[string]string{"Team": args[1]})
	case "score":
		runScore(ctx, client, sess, args)
	case "reset":
		if len(args) < 1 {
			fatalUsage("reset <código>")
		}
		exitOn(client.ResetScores(ctx, args[0], sess.DeviceID))
		notice(cat, "notices.scores_reset", nil)
	case "finish":
		if len(args) < 1 {
			fatalUsage("finish <código>")
		}
		exitOn(client.FinishRoom(ctx, args[0], sess.DeviceID))
		notice(cat, "notices.room_closed", map[string]string{"Code": strings.ToUpper(args[0])})
	case "show":
		if len(args) < 1 {
			fatalUsage("show <código>")
		}
		r, err := client.GetRoom(ctx, args[0])
		exitOn(err)
		printRoom(r)
	case "rooms":
		rooms, err := client.MyRooms(ctx, sess.DeviceID)
		exitOn(err)
		if len(rooms) == 0 {
			fmt.Println("No tienes salas abiertas")
			return
		}
		for i := range rooms {
			fmt.Printf("%s  %-20s %d/%d jugadores\n", rooms[i].Code, rooms[i].Name, len(rooms[i].Players), rooms[i].Capacity)
		}
	case "watch":
		if len(args) < 1 {
			fatalUsage("watch <código>")
		}
		runWatch(watcher, args[0])
	default:
		usage()
		os.Exit(1)
	}
}

func runCreate(ctx context.Context, client *apiclient.Client, cat *msgcat.Catalog, store *session.Store, args []string) {
	if len(args) < 1 {
		fatalUsage("create <nombre> [capacidad] [equipos...]")
	}
	req := roomdto.CreateRoomRequest{
		Name:     args[0],
		Capacity: 4,
		Mode:     "solo",
		DeviceID: store.Session().DeviceID,
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			req.Capacity = n
		}
	}
	if len(args) >= 3 {
		req.Mode = "teams"
		req.TeamNames = args[2:]
	}
	resp, err := client.CreateRoom(ctx, req)
	exitOn(err)
	notice(cat, "notices.room_created", map[string]string{"Code": resp.Code})
	printRoom(&resp.Room)
}

func notice(cat *msgcat.Catalog, key string, data any) {
	msg, err := cat.Render(key, data)
	if err != nil {
		return
	}
	fmt.Println(msg)
}

func runScore(ctx context.Context, client *apiclient.Client, sess session.Session, args []string) {
	if len(args) < 1 {
		fatalUsage("score <código> [clave] [delta]")
	}
	key := sess.DeviceID
	if len(args) >= 2 {
		key = args[1]
	}
	var delta int64 = 1
	if len(args) >= 3 {
		if n, err := strconv.ParseInt(args[2], 10, 64); err == nil {
			delta = n
		}
	}
	exitOn(client.Score(ctx, args[0], key, delta))
	fmt.Println("Punto anotado")
}

func runWatch(watcher *apiclient.Watcher, code string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("Siguiendo la sala", strings.ToUpper(code), "(Ctrl+C para salir)")
	err := watcher.WatchRoom(ctx, strings.ToUpper(code), func(u roomdto.WSUpdate) {
		if u.Room == nil {
			fmt.Println("La sala no existe")
			return
		}
		printRoom(u.Room)
	})
	if err != nil && ctx.Err() == nil {
		exitOn(err)
	}
}

func printRoom(r *roomdto.Room) {
	status := "abierta"
	if r.IsFinished {
		status = "cerrada"
	}
	fmt.Printf("\n[%s] %s (%s, %s) %d/%d jugadores\n", r.Code, r.Name, r.Mode, status, len(r.Players), r.Capacity)
	if r.Mode == "teams" {
		for _, t := range r.Teams {
			fmt.Printf("  %-24s %d\n", t.Name+" ("+t.ID+")", r.Scores[t.ID])
		}
	}
	players := append([]roomdto.Player(nil), r.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].Username < players[j].Username })
	for _, p := range players {
		line := "  - " + p.Username
		if p.TeamID != "" {
			line += " [" + p.TeamID + "]"
		}
		if r.Mode == "solo" {
			line += fmt.Sprintf("  %d", r.Scores[p.DeviceID])
		}
		fmt.Println(line)
	}
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

func fatalUsage(form string) {
	fmt.Fprintln(os.Stderr, "uso: scorerooms "+form)
	os.Exit(1)
}

func usage() {
	fmt.Println(strings.Join([]string{
		"scorerooms: marcador compartido por salas",
		"",
		"  name <nombre>                      elige tu nombre",
		"  whoami                             muestra tu identidad de dispositivo",
		"  create <nombre> [cap] [equipos...] crea una sala (con equipos → modo teams)",
		"  join <código> [team-id]            únete a una sala",
		"  leave <código>                     sal de una sala",
		"  team <código> <team-id>            cambia de equipo",
		"  score <código> [clave] [delta]     anota puntos",
		"  reset <código>                     reinicia puntuaciones (creador)",
		"  finish <código>                    cierra la sala (creador)",
		"  show <código>                      muestra una sala",
		"  rooms                              lista tus salas abiertas",
		"  watch <código>                     sigue una sala en vivo",
	}, "\n"))
}
