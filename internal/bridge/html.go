package bridge

import "strings"

const placeholderAPIKey = "YOUR_GOOGLE_MAPS_API_KEY"

// PageBuilder renders the map surface HTML with the API key injected at
// construction, so key substitution is testable without process-wide state.
type PageBuilder struct {
	apiKey string
}

func NewPageBuilder(apiKey string) *PageBuilder {
	return &PageBuilder{apiKey: strings.TrimSpace(apiKey)}
}

// Build returns the map page, or a key-missing page when no usable API key
// was configured.
func (p *PageBuilder) Build() string {
	if p.apiKey == "" || p.apiKey == placeholderAPIKey {
		return missingKeyHTML
	}
	return strings.ReplaceAll(mapHTML, "__API_KEY__", escapeHTML(p.apiKey))
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

const mapHTML = `<!DOCTYPE html>
<html>
<head>
  <meta name="viewport" content="initial-scale=1,maximum-scale=1,user-scalable=no" />
  <style>
    html, body, #map { height: 100%; width: 100%; margin: 0; padding: 0; background: #0f1115; }
    .chip {
      position: absolute;
      top: 92px;
      left: 12px;
      right: 12px;
      padding: 10px 12px;
      border-radius: 12px;
      background: rgba(20, 20, 20, 0.75);
      color: #fff;
      font-family: Arial, Helvetica, sans-serif;
      font-size: 12px;
      backdrop-filter: blur(10px);
    }
  </style>
</head>
<body>
  <div id="map"></div>
  <div class="chip" id="hint">Tap the map to select a destination.</div>
  <script>
    let map;
    let currentMarker;
    let destinationMarker;
    let directionsService;
    let directionsRenderer;
    let socket;

    function connect() {
      const proto = location.protocol === "https:" ? "wss" : "ws";
      socket = new WebSocket(proto + "://" + location.host + "/ws");
      socket.onmessage = (ev) => {
        const msg = JSON.parse(ev.data);
        if (msg.type === "eval") {
          try { eval(msg.script); } catch (e) {}
        }
      };
      socket.onopen = () => {
        if (map) socket.send(JSON.stringify({ type: "ready" }));
      };
    }

    function attemptNavigation(url) {
      if (socket && socket.readyState === WebSocket.OPEN) {
        socket.send(JSON.stringify({ type: "navigate", url: url }));
        return;
      }
      window.location.href = url;
    }

    function initMap() {
      map = new google.maps.Map(document.getElementById("map"), {
        center: { lat: 0, lng: 0 },
        zoom: 2,
        disableDefaultUI: true,
        zoomControl: true,
        gestureHandling: "greedy",
        clickableIcons: false,
        mapId: "waytrack"
      });

      directionsService = new google.maps.DirectionsService();
      directionsRenderer = new google.maps.DirectionsRenderer({
        suppressMarkers: true,
        preserveViewport: true,
        polylineOptions: {
          strokeColor: "#512BD4",
          strokeOpacity: 0.9,
          strokeWeight: 6
        }
      });
      directionsRenderer.setMap(map);

      map.addListener("click", (e) => {
        const lat = e.latLng.lat();
        const lng = e.latLng.lng();
        attemptNavigation("app://mapclick?lat=" + lat + "&lng=" + lng);
      });

      if (socket && socket.readyState === WebSocket.OPEN) {
        socket.send(JSON.stringify({ type: "ready" }));
      }
    }

    function centerMap(lat, lng, zoom) {
      if (!map) return;
      map.setCenter({ lat: lat, lng: lng });
      if (zoom) map.setZoom(zoom);
    }

    function setCurrent(lat, lng) {
      if (!map) return;
      const pos = { lat: lat, lng: lng };
      if (!currentMarker) {
        currentMarker = new google.maps.Marker({
          position: pos,
          map: map,
          title: "Current Location",
          icon: {
            path: google.maps.SymbolPath.CIRCLE,
            scale: 7,
            fillColor: "#2ECC71",
            fillOpacity: 1,
            strokeColor: "#0f1115",
            strokeWeight: 2
          }
        });
      } else {
        currentMarker.setPosition(pos);
      }
      centerMap(lat, lng, 15);
      renderRouteIfReady();
    }

    function setDestination(lat, lng) {
      if (!map) return;
      const pos = { lat: lat, lng: lng };
      if (!destinationMarker) {
        destinationMarker = new google.maps.Marker({
          position: pos,
          map: map,
          title: "Destination",
          icon: {
            path: google.maps.SymbolPath.BACKWARD_CLOSED_ARROW,
            scale: 5,
            fillColor: "#FF5C5C",
            fillOpacity: 1,
            strokeColor: "#0f1115",
            strokeWeight: 2
          }
        });
      } else {
        destinationMarker.setPosition(pos);
      }
      renderRouteIfReady();
      document.getElementById("hint").textContent = "Destination selected. Use Start Navigation to open directions.";
    }

    function renderRouteIfReady() {
      if (!currentMarker || !destinationMarker) return;
      const origin = currentMarker.getPosition();
      const destination = destinationMarker.getPosition();
      directionsService.route({
        origin: origin,
        destination: destination,
        travelMode: google.maps.TravelMode.DRIVING
      }).then((result) => {
        directionsRenderer.setDirections(result);
      }).catch(() => {
      });
    }

    connect();
  </script>
  <script src="https://maps.googleapis.com/maps/api/js?key=__API_KEY__&libraries=places&callback=initMap" async defer></script>
</body>
</html>
`

const missingKeyHTML = `<!DOCTYPE html>
<html>
<head>
  <meta name="viewport" content="initial-scale=1,maximum-scale=1,user-scalable=no" />
  <style>
    html, body { height: 100%; margin: 0; background: #0f1115; }
    .wrap {
      height: 100%;
      display: flex;
      align-items: center;
      justify-content: center;
      padding: 24px;
      box-sizing: border-box;
      font-family: Arial, Helvetica, sans-serif;
      color: #fff;
    }
    .card {
      max-width: 520px;
      width: 100%;
      background: rgba(255,255,255,0.06);
      border: 1px solid rgba(255,255,255,0.10);
      border-radius: 18px;
      padding: 18px;
    }
    .title { font-size: 18px; font-weight: 700; margin: 0 0 8px; }
    .text { font-size: 13px; line-height: 1.45; color: rgba(255,255,255,0.80); margin: 0; }
    .code {
      margin-top: 12px;
      font-size: 12px;
      color: rgba(255,255,255,0.90);
      background: rgba(0,0,0,0.35);
      border-radius: 12px;
      padding: 12px;
      overflow-wrap: anywhere;
    }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="card">
      <p class="title">Google Maps API key is required</p>
      <p class="text">
        Set MAPS_API_KEY in the environment or .env file, then enable billing
        and the Maps JavaScript API in Google Cloud.
      </p>
      <div class="code">MAPS_API_KEY=...</div>
    </div>
  </div>
</body>
</html>
`
