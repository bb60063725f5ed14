package main

import (
	"fmt"
	"html"
	"net/http"
	"strings"
)

// Upstream de teste para o gateway: faz o papel da UI. Tudo que chega em
// /room/{id} aqui já foi admitido pelo gateway.
func main() {
	http.HandleFunc("/room/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/room/")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Sala %s</h1><p>Você está dentro. A sala se autodestrói em 10 minutos.</p>", html.EscapeString(id))
		fmt.Printf("Log: alguém entrou na sala %s\n", id)
	})
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<h1>anon_chat</h1>")
		if e := r.URL.Query().Get("error"); e != "" {
			fmt.Fprintf(w, "<p>erro: %s</p>", html.EscapeString(e))
		}
	})
	fmt.Println("Servidor rodando em http://localhost:8081")
	err := http.ListenAndServe(":8081", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}
