// Package jargon holds vocabulary profiles and applies their phrase
// corrections to transcripts. Built-in and user profiles share one record
// type and one catalog, distinguished by provenance.
package jargon

import "strings"

type Provenance string

const (
	ProvenanceBuiltin Provenance = "builtin"
	ProvenanceUser    Provenance = "user"
)

// Correction rewrites From (matched case-insensitively) to To.
type Correction struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

type Profile struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Terms       []string     `json:"terms"`
	Corrections []Correction `json:"corrections"`
	Enabled     bool         `json:"enabled"`
	Provenance  Provenance   `json:"provenance"`
}

// ReadOnly reports whether the profile ships with the binary.
func (p Profile) ReadOnly() bool {
	return p.Provenance == ProvenanceBuiltin
}

func (p Profile) clone() Profile {
	out := p
	out.Terms = append([]string(nil), p.Terms...)
	out.Corrections = append([]Correction(nil), p.Corrections...)
	return out
}

func corrections(pairs ...string) []Correction {
	out := make([]Correction, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Correction{From: pairs[i], To: pairs[i+1]})
	}
	return out
}

func terms(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Builtins returns fresh copies of the shipped profiles, sorted by id.
func Builtins() []Profile {
	list := []Profile{
		{
			ID:    "business",
			Label: "Business",
			Terms: terms("Revenue, Gross Margin, Operating Expense, Cash Flow, Forecast, Pipeline, Conversion Rate, " +
				"Customer Retention, Churn, ARR, MRR, KPI, OKR, Roadmap, Go-to-market, ROI, CAC, LTV, Stakeholder, Quarterly Planning"),
			Corrections: corrections(
				"A R R", "ARR",
				"M R R", "MRR",
				"K P I", "KPI",
				"O K R", "OKR",
				"go to market", "Go-to-market",
				"R O I", "ROI",
				"C A C", "CAC",
				"L T V", "LTV",
			),
		},
		{
			ID:    "coding",
			Label: "Coding",
			Terms: terms("TypeScript, JavaScript, Rust, Python, Go, SQL, PostgreSQL, Redis, Docker, Kubernetes, Git, GitHub, " +
				"Pull Request, Code Review, Refactor, Lint, CI/CD, API, gRPC, GraphQL"),
			Corrections: corrections(
				"type script", "TypeScript",
				"java script", "JavaScript",
				"post gres", "PostgreSQL",
				"G R P C", "gRPC",
				"graph Q L", "GraphQL",
				"pull request", "Pull Request",
			),
		},
		{
			ID:    "data_science",
			Label: "Data Science & ML",
			Terms: terms("TensorFlow, PyTorch, NumPy, Pandas, Scikit-learn, Jupyter, Matplotlib, Keras, CUDA, GPU, TPU, " +
				"CNN, RNN, LSTM, GAN, NLP, BERT, GPT, LLM, RAG, Hugging Face, MLflow, Spark, Hadoop"),
			Corrections: corrections(
				"tensor flow", "TensorFlow",
				"pie torch", "PyTorch",
				"num pie", "NumPy",
				"hugging face", "Hugging Face",
				"sick it learn", "Scikit-learn",
				"L L M", "LLM",
			),
		},
		{
			ID:    "devops",
			Label: "DevOps & Cloud",
			Terms: terms("Terraform, Ansible, Jenkins, GitLab, Prometheus, Grafana, Nginx, Apache, AWS, GCP, Azure, S3, " +
				"EC2, Lambda, ECS, EKS, Helm, Istio, gRPC, Kafka, RabbitMQ, Elasticsearch"),
			Corrections: corrections(
				"engine X", "Nginx",
				"terra form", "Terraform",
				"cube CTL", "kubectl",
				"G R P C", "gRPC",
				"E K S", "EKS",
				"E C S", "ECS",
				"E C two", "EC2",
			),
		},
		{
			ID:    "embedded",
			Label: "Embedded Systems",
			Terms: terms("UART, SPI, I2C, GPIO, RTOS, JTAG, FPGA, ARM, RISC-V, STM32, ESP32, Arduino, Raspberry Pi, PWM, " +
				"ADC, DAC, DMA, ISR, HAL, PCB, VHDL, Verilog, GDB, OpenOCD, FreeRTOS, Zephyr, PlatformIO"),
			Corrections: corrections(
				"I two C", "I2C",
				"risk five", "RISC-V",
				"S T M 32", "STM32",
				"E S P 32", "ESP32",
				"you art", "UART",
				"G P I O", "GPIO",
				"jay tag", "JTAG",
			),
		},
		{
			ID:    "law_enforcement",
			Label: "Law Enforcement",
			Terms: terms("Probable Cause, Miranda, Warrant, Search Warrant, Arrest Warrant, BOLO, Dispatch, Patrol, " +
				"Incident Report, Evidence, Chain of Custody, Body Camera, Use of Force, De-escalation, Detention, Felony, " +
				"Misdemeanor, Citation, Perimeter, Suspect"),
			Corrections: corrections(
				"B O L O", "BOLO",
				"miranda rights", "Miranda",
				"chain of custody", "Chain of Custody",
				"body cam", "Body Camera",
				"use of force", "Use of Force",
				"de escalation", "De-escalation",
			),
		},
		{
			ID:    "web_dev",
			Label: "Web Development",
			Terms: terms("TypeScript, JavaScript, React, Next.js, Tailwind, Webpack, Vite, GraphQL, REST, API, JSON, CORS, " +
				"OAuth, JWT, WebSocket, SSR, CSR, SSG, CDN, DNS, Vercel, Netlify, Supabase, Prisma, PostgreSQL, MongoDB, " +
				"Redis, Docker, Kubernetes, CI/CD, GitHub, npm, pnpm, Bun"),
			Corrections: corrections(
				"next js", "Next.js",
				"post gres", "PostgreSQL",
				"type script", "TypeScript",
				"java script", "JavaScript",
				"web socket", "WebSocket",
				"graph QL", "GraphQL",
				"tail wind", "Tailwind",
				"web pack", "Webpack",
			),
		},
	}
	for i := range list {
		list[i].Provenance = ProvenanceBuiltin
	}
	return list
}
